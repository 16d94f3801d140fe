package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/posekit/internal/annotate"
	"github.com/ayusman/posekit/internal/store"
	"github.com/ayusman/posekit/internal/vision"
	"github.com/ayusman/posekit/internal/watch"
)

var (
	watchOutput  string
	watchPattern string
	watchRescale int
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Annotate images as they are added to a directory",
	Long: `Watch a directory tree and annotate every image created or written in it.
Annotated copies are written to --output under the same relative path.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		out, err := filepath.Abs(watchOutput)
		if err != nil {
			return err
		}
		if within(dir, out) {
			return fmt.Errorf("output directory %s must not be inside the watched directory", out)
		}

		opts, err := annotateOptions(cmd, watchRescale)
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
		if st != nil {
			defer st.Close()
		}

		// The detector subprocess handles one request at a time.
		handler := func(ctx context.Context, path string) error {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			dest := filepath.Join(out, rel)
			if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
				return err
			}

			var recorder *store.RunRecorder
			if st != nil {
				recorder, err = st.NewRunRecorder(&store.Run{Kind: store.RunKindImage, Source: path})
				if err != nil {
					return err
				}
			}

			w, h, detected, err := annotateFile(annotator, recorder, path, dest)
			if err != nil {
				discardRun(recorder)
				return err
			}
			if recorder != nil {
				if err := recorder.Finish(1, w, h); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s pose=%t\n", rel, dest, detected)
			return nil
		}

		watcher, err := watch.New(watch.Config{Dir: dir, Pattern: watchPattern}, serialize(handler))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return watcher.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "annotated", "Directory to write annotated images to")
	watchCmd.Flags().StringVarP(&watchPattern, "pattern", "p", watch.DefaultPattern, "Glob of files to annotate, relative to the watched directory")
	watchCmd.Flags().IntVarP(&watchRescale, "rescale", "r", 0, "Rescale factor in percent (defaults to the config value)")
}

// annotateFile annotates the image at src and writes it to dest.
func annotateFile(annotator *annotate.Annotator, recorder *store.RunRecorder, src, dest string) (int, int, bool, error) {
	if recorder != nil {
		annotator.SetRecorder(recorder)
		defer annotator.SetRecorder(nil)
	}

	img, result, err := annotator.Image(vision.PathSource(src))
	if err != nil {
		return 0, 0, false, err
	}
	defer img.Close()

	if recorder != nil {
		saveThumbnail(recorder, img)
	}

	if err := vision.Save(dest, img); err != nil {
		return 0, 0, false, err
	}
	return img.Cols(), img.Rows(), result.HasPose(), nil
}

// serialize makes handler calls run one at a time.
func serialize(handler watch.Handler) watch.Handler {
	sem := make(chan struct{}, 1)
	return func(ctx context.Context, path string) error {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		defer func() { <-sem }()
		return handler(ctx, path)
	}
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
