package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/ayusman/posekit/internal/annotate"
	"github.com/ayusman/posekit/internal/app"
	"github.com/ayusman/posekit/internal/config"
	"github.com/ayusman/posekit/internal/landmark"
	"github.com/ayusman/posekit/internal/store"
	"github.com/ayusman/posekit/internal/thumbnail"
	"github.com/ayusman/posekit/internal/vision"
)

var (
	verbose    bool
	configPath string
	dbPath     string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "posekit",
	Short: "Holistic pose and hand landmark overlays for images and video",
	Long: `posekit runs MediaPipe Holistic over images, video files and cameras and
draws the detected pose and hand landmarks onto the frames. Runs can be
recorded to SQLite and inspected through the preview server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		if configPath == "" {
			cfg = config.Default()
		} else {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}

		if dbPath != "" {
			cfg.Database = dbPath
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database to record runs to")
}

// annotateOptions returns the configured options, overriding the rescale
// factor when the command's --rescale flag was given.
func annotateOptions(cmd *cobra.Command, rescale int) (annotate.Options, error) {
	opts, err := cfg.Options()
	if err != nil {
		return annotate.Options{}, err
	}
	if cmd.Flags().Changed("rescale") {
		opts.Rescale = rescale
	}
	if opts.Rescale <= 0 {
		return annotate.Options{}, fmt.Errorf("%w: got %d", vision.ErrInvalidRescaleFactor, opts.Rescale)
	}
	return opts, nil
}

// newDetector returns MediaPipe when available and a mock detector otherwise.
func newDetector() landmark.Detector {
	return app.NewDetector(cfg.DetectorConfig())
}

// openStore opens the configured database. It returns nil when recording is
// disabled, unless required is set, in which case the default path is used.
func openStore(required bool) (*store.Store, error) {
	path := cfg.Database
	if path == "" {
		if !required {
			return nil, nil
		}
		def, err := config.DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
		path = def
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	slog.Debug("opened database", "path", path)
	return st, nil
}

// discardRun removes a run whose annotation failed. A nil recorder is ignored.
func discardRun(recorder *store.RunRecorder) {
	if recorder == nil {
		return
	}
	if err := recorder.Discard(); err != nil {
		slog.Warn("failed to discard run", "run", recorder.RunID(), "err", err)
	}
}

// saveThumbnail stores a preview of img for the recorded run. Failures are
// logged and do not fail the command.
func saveThumbnail(recorder *store.RunRecorder, img *gocv.Mat) {
	data, err := thumbnail.FromMat(img, thumbnail.DefaultSize)
	if err == nil {
		err = recorder.SetThumbnail(data)
	}
	if err != nil {
		slog.Warn("failed to store thumbnail", "run", recorder.RunID(), "err", err)
	}
}
