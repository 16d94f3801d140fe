package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/posekit/internal/vision"
)

var rescaleFactor int

var rescaleCmd = &cobra.Command{
	Use:   "rescale [source] [destination]",
	Short: "Resize an image by a percentage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := vision.Rescale(vision.PathSource(args[0]), rescaleFactor)
		if err != nil {
			return err
		}
		defer img.Close()

		if err := vision.Save(args[1], img); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d\n", args[1], img.Cols(), img.Rows())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rescaleCmd)
	rescaleCmd.Flags().IntVarP(&rescaleFactor, "factor", "f", 100, "Output size in percent of the input")
}
