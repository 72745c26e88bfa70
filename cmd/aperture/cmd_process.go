package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"aperture/internal/cull"
)

var (
	processParallel int
	processExport   bool
)

var processCmd = &cobra.Command{
	Use:   "process <image-or-dir>...",
	Short: "Grade photos and store keep/toss verdicts",
	Long: `Runs each photo through the culling pipeline: vision model analysis,
weighted scoring, and verdict persistence. Directories contribute their
.jpg/.jpeg files. A photo that fails is reported and the batch continues.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().IntVar(&processParallel, "parallel", 1, "number of photos graded concurrently")
	processCmd.Flags().BoolVar(&processExport, "export", false, "export all records as JSON when done")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	paths, err := gatherImages(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .jpg/.jpeg images found")
	}

	if processParallel < 1 {
		processParallel = 1
	}
	var (
		mu     sync.Mutex
		states = make([]*cull.State, len(paths))
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(processParallel)
	for i, path := range paths {
		g.Go(func() error {
			state, err := pipeline.ProcessImage(ctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			states[i] = state
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, state := range states {
		if state.Err != "" {
			failed++
			fmt.Fprintf(out, "%-40s ERROR  %s\n", state.Filename, state.Err)
			continue
		}
		fmt.Fprintf(out, "%-40s %-5s  %s (confidence %.2f)\n",
			state.Filename, state.Verdict, state.ConfidenceLevel, state.Confidence)
	}
	fmt.Fprintf(out, "\nkeep: %d  toss: %d  errors: %d\n",
		len(pipeline.KeepImages()), len(pipeline.TossImages()), failed)

	if processExport {
		path, err := pipeline.ExportMetadata("", "")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "metadata exported to %s\n", path)
	}
	return nil
}
