package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/posekit/internal/vision"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror [source] [destination]",
	Short: "Flip an image horizontally",
	Long:  `Flip an image around its vertical axis. With a destination the result is written there, the format following its extension.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		destination := ""
		if len(args) == 2 {
			destination = args[1]
		}

		img, err := vision.Mirror(vision.PathSource(args[0]), destination)
		if err != nil {
			return err
		}
		defer img.Close()

		if destination == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "mirrored %dx%d image (not saved)\n", img.Cols(), img.Rows())
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d\n", destination, img.Cols(), img.Rows())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
}
