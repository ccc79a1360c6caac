package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/pipeline"
	"github.com/JakeFAU/activity-heatmap/internal/report"
)

// newCollectCmd creates the 'collect' subcommand, which runs every configured
// source adapter and writes sources_{kind}.csv.
func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Collects entries from every configured source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			b, err := a.Pipeline.Collect(cmd.Context())
			if err != nil {
				return fmt.Errorf("collect: %w", err)
			}
			printBatch(cmd.OutOrStdout(), "sources", b)
			return nil
		},
	}
}

// newContentCmd creates the 'content' subcommand, which resolves article text
// for the collected entries.
func newContentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "content",
		Short: "Fetches article text for collected entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			b, err := a.Pipeline.LoadSources()
			if err != nil {
				return fmt.Errorf("load sources: %w", err)
			}
			rows, err := a.Pipeline.Content(cmd.Context(), b)
			if err != nil {
				return fmt.Errorf("content: %w", err)
			}
			for _, kind := range b.Kinds {
				fmt.Fprintf(cmd.OutOrStdout(), "content_%s.csv: %d rows\n", kind, len(rows[kind]))
			}
			return nil
		},
	}
}

// newStatsCmd creates the 'stats' subcommand, which counts words and
// characters per entry.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Computes word and character counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			b, err := a.Pipeline.LoadSources()
			if err != nil {
				return fmt.Errorf("load sources: %w", err)
			}
			counted, err := a.Pipeline.Statistics(b, nil)
			if err != nil {
				return fmt.Errorf("statistics: %w", err)
			}
			printBatch(cmd.OutOrStdout(), "statistics", counted)
			return nil
		},
	}
}

// newReportCmd creates the 'report' subcommand, which renders heatmaps and
// summaries from the statistics files.
func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Renders heatmaps, index.html and the README summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			b, err := a.Pipeline.LoadStatistics()
			if err != nil {
				return fmt.Errorf("load statistics: %w", err)
			}
			res, err := a.Pipeline.Report(cmd.Context(), b)
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

// newRunCmd creates the 'run' subcommand, which executes every stage in
// process.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs collect, content, stats and report in one pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Pipeline.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			a.Logger.Info("Run command finished.", zap.Int("entries", res.Overview.Summary.Entries))
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printBatch(w io.Writer, prefix string, b pipeline.Batch) {
	for _, kind := range b.Kinds {
		fmt.Fprintf(w, "%s_%s.csv: %d entries\n", prefix, kind, len(b.Entries[kind]))
	}
	fmt.Fprintf(w, "total: %d entries\n", b.Len())
}

func printResult(w io.Writer, res report.Result) {
	s := res.Overview.Summary
	fmt.Fprintf(w, "%d entries on %d days, %d words (%s)\n", s.Entries, s.Days, s.Words, s.ReadingTime())
	for _, path := range res.Artifacts {
		fmt.Fprintf(w, "wrote %s\n", path)
	}
	if res.Readme != "" {
		fmt.Fprintf(w, "updated %s\n", res.Readme)
	}
}
