package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/activity-heatmap/internal/store"
)

// newDupesCmd creates the 'dupes' subcommand. Without arguments it scans the
// sources file of every configured kind.
func newDupesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dupes [csv...]",
		Short: "Reports links that appear more than once in a CSV",
		Long: `dupes reads any CSV with a Link column, prints every link that
repeats and writes the repeated rows to {name}_duplicates.csv beside it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				a, err := resolveApp(cmd.Context())
				if err != nil {
					return err
				}
				for _, kind := range a.Pipeline.Kinds() {
					paths = append(paths, a.Dir.SourcesPath(kind))
				}
			}
			out := cmd.OutOrStdout()
			for _, path := range paths {
				rep, err := store.FindDuplicates(path)
				if err != nil {
					if store.IsMissing(err) && len(args) == 0 {
						continue
					}
					return fmt.Errorf("dupes %s: %w", path, err)
				}
				fmt.Fprintf(out, "%s: %d rows, %d unique links, %d extra\n", rep.Path, rep.Rows, rep.Unique, rep.Extra)
				for _, d := range rep.Duplicates {
					fmt.Fprintf(out, "  %dx %s\n", d.Count, d.Link)
				}
				if rep.OutPath != "" {
					fmt.Fprintf(out, "wrote %d rows to %s\n", rep.Written, rep.OutPath)
				}
			}
			return nil
		},
	}
}
