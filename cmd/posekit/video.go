package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/ayusman/posekit/internal/annotate"
	"github.com/ayusman/posekit/internal/capture"
	"github.com/ayusman/posekit/internal/store"
)

var (
	videoOutput  string
	videoRescale int
)

var videoCmd = &cobra.Command{
	Use:   "video [path|camera-index]",
	Short: "Draw landmarks on every frame of a video file or camera",
	Long: `Read frames from a video file, or from a camera when the argument is an
integer index, and annotate each one. With --output the annotated frames are
written to an MJPG video. Press Ctrl+C to stop reading a camera.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := annotateOptions(cmd, videoRescale)
		if err != nil {
			return err
		}

		det := newDetector()
		defer det.Close()

		annotator, err := annotate.New(det, opts)
		if err != nil {
			return err
		}

		stream, err := capture.OpenSource(args[0])
		if err != nil {
			return err
		}
		defer stream.Close()

		st, err := openStore(false)
		if err != nil {
			return err
		}
		var recorder *store.RunRecorder
		if st != nil {
			defer st.Close()
			recorder, err = st.NewRunRecorder(&store.Run{Kind: store.RunKindVideo, Source: args[0]})
			if err != nil {
				return err
			}
			annotator.SetRecorder(recorder)
		}

		var writer *capture.VideoWriter
		width, height := 0, 0
		if videoOutput != "" {
			writer = capture.NewVideoWriter(videoOutput, stream.FPS())
			defer writer.Close()
		}
		sink := annotate.FrameSinkFunc(func(frame *gocv.Mat) error {
			if recorder != nil && width == 0 {
				saveThumbnail(recorder, frame)
			}
			width, height = frame.Cols(), frame.Rows()
			if writer == nil {
				return nil
			}
			return writer.WriteFrame(frame)
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		stats, err := annotator.Video(ctx, stream, sink)
		if err != nil && ctx.Err() == nil {
			discardRun(recorder)
			return err
		}

		if recorder != nil {
			if err := recorder.Finish(stats.Frames, width, height); err != nil {
				return err
			}
			slog.Info("recorded run", "id", recorder.RunID())
		}

		fmt.Fprintf(cmd.OutOrStdout(), "frames=%d detected=%d\n", stats.Frames, stats.Detected)
		if writer != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", writer.Frames(), videoOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(videoCmd)
	videoCmd.Flags().StringVarP(&videoOutput, "output", "o", "", "Write annotated frames to this video file")
	videoCmd.Flags().IntVarP(&videoRescale, "rescale", "r", 0, "Rescale factor in percent (defaults to the config value)")
}
