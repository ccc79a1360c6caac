package store

import (
	"path/filepath"
	"strings"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/merge"
)

// DuplicateReport summarizes repeated links in a CSV file.
type DuplicateReport struct {
	Path       string
	Rows       int
	Unique     int
	Extra      int
	Duplicates []merge.Duplicate
	// OutPath is where the duplicate rows were written; empty when there
	// were none.
	OutPath string
	Written int
}

// DuplicatesPath is {name}_duplicates.csv next to path.
func DuplicatesPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_duplicates.csv"
}

// FindDuplicates scans any CSV with a Link column and writes every row whose
// link repeats, in file order and with the original header, to
// DuplicatesPath(path).
func FindDuplicates(path string) (DuplicateReport, error) {
	t, err := readTable(path)
	if err != nil {
		return DuplicateReport{}, err
	}
	cols, err := t.columns("Link")
	if err != nil {
		return DuplicateReport{}, err
	}

	entries := make([]activity.Entry, len(t.rows))
	for i, row := range t.rows {
		entries[i] = activity.Entry{Link: strings.TrimSpace(field(row, cols[0]))}
	}
	dups := merge.FindDuplicates(entries)

	report := DuplicateReport{Path: path, Rows: len(t.rows), Duplicates: dups}
	unique := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		unique[e.Key()] = struct{}{}
	}
	report.Unique = len(unique)
	report.Extra = report.Rows - report.Unique
	if len(dups) == 0 {
		return report, nil
	}

	repeated := make(map[string]struct{}, len(dups))
	for _, d := range dups {
		repeated[activity.CanonicalLink(d.Link)] = struct{}{}
	}
	var rows [][]string
	for i, row := range t.rows {
		if _, ok := repeated[entries[i].Key()]; ok {
			rows = append(rows, row)
		}
	}
	report.OutPath = DuplicatesPath(path)
	report.Written = len(rows)
	if err := writeFile(report.OutPath, t.header, rows); err != nil {
		return DuplicateReport{}, err
	}
	return report, nil
}
