package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/posekit/internal/vision"
)

var centerCmd = &cobra.Command{
	Use:   "center [path]",
	Short: "Print the centre point of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, y, err := vision.Center(vision.PathSource(args[0]))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%g %g\n", x, y)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(centerCmd)
}
