package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ayusman/posekit/internal/annotate"
	"github.com/ayusman/posekit/internal/store"
	"github.com/ayusman/posekit/internal/vision"
)

var (
	imageOutput  string
	imageRescale int
)

var imageCmd = &cobra.Command{
	Use:   "image [path]",
	Short: "Draw pose and hand landmarks on an image",
	Long:  `Open an image, rescale it, run holistic detection and write the annotated copy to --output.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := annotateOptions(cmd, imageRescale)
		if err != nil {
			return err
		}

		det := newDetector()
		defer det.Close()

		annotator, err := annotate.New(det, opts)
		if err != nil {
			return err
		}

		st, err := openStore(false)
		if err != nil {
			return err
		}
		var recorder *store.RunRecorder
		if st != nil {
			defer st.Close()
			recorder, err = st.NewRunRecorder(&store.Run{Kind: store.RunKindImage, Source: args[0]})
			if err != nil {
				return err
			}
			annotator.SetRecorder(recorder)
		}

		img, result, err := annotator.Image(vision.PathSource(args[0]))
		if err != nil {
			discardRun(recorder)
			return err
		}
		defer img.Close()

		if recorder != nil {
			saveThumbnail(recorder, img)
			if err := recorder.Finish(1, img.Cols(), img.Rows()); err != nil {
				return err
			}
			slog.Info("recorded run", "id", recorder.RunID())
		}

		if err := vision.Save(imageOutput, img); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d pose=%t left_hand=%t right_hand=%t\n",
			imageOutput, img.Cols(), img.Rows(),
			result.HasPose(), len(result.LeftHand) > 0, len(result.RightHand) > 0)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.Flags().StringVarP(&imageOutput, "output", "o", "annotated.png", "Where to write the annotated image")
	imageCmd.Flags().IntVarP(&imageRescale, "rescale", "r", 0, "Rescale factor in percent (defaults to the config value)")
}
