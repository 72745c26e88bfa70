package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reviewFeedback string
	reviewVerdict  string
	reviewExport   bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <image>",
	Short: "Regrade a photo with reviewer feedback attached",
	Long: `Runs a photo through the pipeline with reviewer feedback and an optional
verdict override attached, so both land on the stored record. With --export
the record is written out as JSON afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewFeedback, "feedback", "", "reviewer feedback to attach")
	reviewCmd.Flags().StringVar(&reviewVerdict, "verdict", "", "override verdict (keep or toss)")
	reviewCmd.Flags().BoolVar(&reviewExport, "export", false, "export the record as JSON when done")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	state, err := pipeline.ProvideFeedback(cmd.Context(), args[0], reviewFeedback, reviewVerdict)
	if err != nil {
		return err
	}
	if state.Err != "" {
		return fmt.Errorf("process %s: %s", args[0], state.Err)
	}

	out := cmd.OutOrStdout()
	rec, err := pipeline.Metadata(state.Filename)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s (%s, confidence %.2f)\n",
		state.Filename, rec.EffectiveVerdict(), state.ConfidenceLevel, state.Confidence)

	if reviewExport {
		path, err := pipeline.ExportMetadata("", state.Filename)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "record exported to %s\n", path)
	}
	return nil
}
