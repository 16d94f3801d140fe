package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var runsJSON bool

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(true)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.Runs().List()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		if runsJSON {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(runs)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tFRAMES\tSIZE\tCREATED\tSOURCE")
		for _, run := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%dx%d\t%s\t%s\n",
				run.ID, run.Kind, run.Frames, run.Width, run.Height,
				run.CreatedAt.Format(time.DateTime), run.Source)
		}
		return tw.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a run and its per-frame detections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(true)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.Runs().GetByID(args[0])
		if err != nil {
			return fmt.Errorf("run %s: %w", args[0], err)
		}

		detections, err := st.Detections().ListByRun(run.ID)
		if err != nil {
			return fmt.Errorf("list detections: %w", err)
		}

		out := cmd.OutOrStdout()
		if runsJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(struct {
				Run        any `json:"run"`
				Detections any `json:"detections"`
			}{run, detections})
		}

		fmt.Fprintf(out, "id:      %s\nkind:    %s\nsource:  %s\nsize:    %dx%d\nframes:  %d\ncreated: %s\n",
			run.ID, run.Kind, run.Source, run.Width, run.Height, run.Frames, run.CreatedAt.Format(time.DateTime))

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FRAME\tPOSE\tLEFT\tRIGHT")
		for _, d := range detections {
			fmt.Fprintf(tw, "%d\t%t\t%t\t%t\n", d.FrameIndex, d.HasPose, d.LeftHand, d.RightHand)
		}
		return tw.Flush()
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a run and its detections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(true)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Runs().Delete(args[0]); err != nil {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	runsCmd.PersistentFlags().BoolVar(&runsJSON, "json", false, "Output in JSON format")
}
