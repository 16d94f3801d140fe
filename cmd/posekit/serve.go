package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/posekit/internal/app"
	"github.com/ayusman/posekit/internal/capture"
	"github.com/ayusman/posekit/internal/server"
)

var (
	serveAddr    string
	serveSource  string
	serveNoLive  bool
	serveRescale int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live preview and run inspection server",
	Long: `Serve an MJPEG preview of the annotated source on /api/stream, detection
results over WebSocket on /api/landmarks and recorded runs on /api/runs.
With --no-live only the runs API is served.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if serveSource != "" {
			cfg.Server.Source = serveSource
		}

		st, err := openStore(true)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srvConfig := server.Config{
			StaticDir: cfg.Server.StaticDir,
			Store:     st,
		}
		if srvConfig.StaticDir == "" {
			srvConfig.StaticDir = findWebDir()
		}
		if srvConfig.StaticDir != "" {
			slog.Info("serving static files", "dir", srvConfig.StaticDir)
		}

		if !serveNoLive {
			opts, err := annotateOptions(cmd, serveRescale)
			if err != nil {
				return err
			}

			stream, err := capture.OpenSource(cfg.Server.Source)
			if err != nil {
				return err
			}

			hub := server.NewHub()
			srvConfig.Hub = hub

			det := newDetector()
			preview, err := app.New(app.Config{
				Stream:       stream,
				Source:       cfg.Server.Source,
				Detector:     det,
				Options:      opts,
				MotionThresh: cfg.Server.MotionThreshold,
				Hub:          hub,
				Store:        st,
			})
			if err != nil {
				stream.Close()
				det.Close()
				return err
			}
			if err := preview.Start(); err != nil {
				preview.Stop()
				return err
			}
			defer preview.Stop()

			// A finished video file ends the preview but keeps the server up.
			go func() {
				<-preview.Done()
				slog.Info("preview finished", "run", preview.RunID())
			}()
		}

		srv := server.New(srvConfig)
		slog.Info("starting server", "addr", cfg.Server.Addr)
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (defaults to the config value)")
	serveCmd.Flags().StringVarP(&serveSource, "source", "s", "", "Camera index or video file to preview")
	serveCmd.Flags().BoolVar(&serveNoLive, "no-live", false, "Serve recorded runs only, without a live preview")
	serveCmd.Flags().IntVarP(&serveRescale, "rescale", "r", 0, "Rescale factor in percent (defaults to the config value)")
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.posekit/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".posekit", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
