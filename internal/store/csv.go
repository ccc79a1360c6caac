package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
)

// Column headers.
var (
	SourcesHeader    = []string{"Link", "Date", "Title", "Type"}
	ContentHeader    = []string{"Link", "Content"}
	StatisticsHeader = []string{"Link", "Date", "Title", "Word Count", "Character Count", "Type"}
)

// ErrMissingColumn is returned when a file lacks a required header.
var ErrMissingColumn = errors.New("store: missing column")

// Dir is a data directory holding one set of intermediate files per kind.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root, creating it if needed.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root is the directory path.
func (d *Dir) Root() string { return d.root }

// SourcesPath is the location of sources_{kind}.csv.
func (d *Dir) SourcesPath(kind string) string {
	return filepath.Join(d.root, "sources_"+kind+".csv")
}

// ContentPath is the location of content_{kind}.csv.
func (d *Dir) ContentPath(kind string) string {
	return filepath.Join(d.root, "content_"+kind+".csv")
}

// StatisticsPath is the location of statistics_{kind}.csv.
func (d *Dir) StatisticsPath(kind string) string {
	return filepath.Join(d.root, "statistics_"+kind+".csv")
}

// WriteSources records the entries collected for kind.
func (d *Dir) WriteSources(kind string, entries []activity.Entry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Link, e.DateString(), e.Title, string(e.SourceType)})
	}
	return writeFile(d.SourcesPath(kind), SourcesHeader, rows)
}

// ReadSources loads sources_{kind}.csv. A missing file yields an error
// matching fs.ErrNotExist.
func (d *Dir) ReadSources(kind string) ([]activity.Entry, error) {
	t, err := readTable(d.SourcesPath(kind))
	if err != nil {
		return nil, err
	}
	cols, err := t.columns("Link", "Date", "Title", "Type")
	if err != nil {
		return nil, err
	}
	out := make([]activity.Entry, 0, len(t.rows))
	for i, row := range t.rows {
		e, err := entryFromRow(row, cols[0], cols[1], cols[2], cols[3], kind)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.path, i+2, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// ContentRow pairs a link with its extracted text.
type ContentRow struct {
	Link    string
	Content string
}

// WriteContent records extracted text for kind.
func (d *Dir) WriteContent(kind string, rows []ContentRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Link, r.Content})
	}
	return writeFile(d.ContentPath(kind), ContentHeader, out)
}

// ReadContent loads content_{kind}.csv keyed by canonical link.
func (d *Dir) ReadContent(kind string) (map[string]string, error) {
	t, err := readTable(d.ContentPath(kind))
	if err != nil {
		return nil, err
	}
	cols, err := t.columns("Link", "Content")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(t.rows))
	for _, row := range t.rows {
		key := activity.CanonicalLink(field(row, cols[0]))
		if _, ok := out[key]; ok {
			continue
		}
		out[key] = field(row, cols[1])
	}
	return out, nil
}

// WriteStatistics records counted entries for kind.
func (d *Dir) WriteStatistics(kind string, entries []activity.Entry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Link,
			e.DateString(),
			e.Title,
			strconv.Itoa(e.WordCount),
			strconv.Itoa(e.CharCount),
			string(e.SourceType),
		})
	}
	return writeFile(d.StatisticsPath(kind), StatisticsHeader, rows)
}

// ReadStatistics loads statistics_{kind}.csv. Files without a Type column
// are attributed to the kind's primary source type.
func (d *Dir) ReadStatistics(kind string) ([]activity.Entry, error) {
	t, err := readTable(d.StatisticsPath(kind))
	if err != nil {
		return nil, err
	}
	cols, err := t.columns("Link", "Date", "Title", "Word Count", "Character Count")
	if err != nil {
		return nil, err
	}
	typeCol := t.index["Type"]
	if _, ok := t.index["Type"]; !ok {
		typeCol = -1
	}
	out := make([]activity.Entry, 0, len(t.rows))
	for i, row := range t.rows {
		e, err := entryFromRow(row, cols[0], cols[1], cols[2], typeCol, kind)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.path, i+2, err)
		}
		if e.WordCount, err = atoi(field(row, cols[3])); err != nil {
			return nil, fmt.Errorf("%s row %d: word count: %w", t.path, i+2, err)
		}
		if e.CharCount, err = atoi(field(row, cols[4])); err != nil {
			return nil, fmt.Errorf("%s row %d: character count: %w", t.path, i+2, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// defaultType is the source type assumed for rows that carry none.
func defaultType(kind string) activity.SourceType {
	for _, st := range activity.SourceTypes {
		if st.Kind() == kind {
			return st
		}
	}
	return ""
}

func entryFromRow(row []string, linkCol, dateCol, titleCol, typeCol int, kind string) (activity.Entry, error) {
	date, err := activity.ParseDate(field(row, dateCol))
	if err != nil {
		return activity.Entry{}, err
	}
	st := defaultType(kind)
	if typeCol >= 0 && field(row, typeCol) != "" {
		if st, err = activity.ParseSourceType(field(row, typeCol)); err != nil {
			return activity.Entry{}, err
		}
	}
	return activity.Entry{
		Link:       field(row, linkCol),
		Date:       date,
		Title:      field(row, titleCol),
		SourceType: st,
	}, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// IsMissing reports whether err means an intermediate file does not exist.
func IsMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
