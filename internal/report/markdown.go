package report

import (
	"fmt"
	"strings"
)

// Title heads every report.
const Title = "Diary Activity Overview"

// README markers delimiting the generated block.
const (
	StartMarker = "<!-- START_STATS -->"
	EndMarker   = "<!-- END_STATS -->"
)

// DefaultReadme seeds a README that does not exist yet.
const DefaultReadme = "# Statistics\n\n" + StartMarker + "\n" + EndMarker + "\n"

// Markdown renders the overview with inline SVG heatmaps.
func Markdown(o Overview) string {
	lines := []string{"# " + o.Title + "\n"}
	for _, y := range o.Years {
		lines = append(lines,
			fmt.Sprintf("### %d", y.Year),
			y.SVG,
			"\n"+y.Caption+"\n",
		)
	}

	lines = append(lines,
		"## Statistics",
		fmt.Sprintf("- **Days covered:** %d", o.Summary.Days),
		fmt.Sprintf("- **Total entries:** %d", o.Summary.Entries),
		fmt.Sprintf("- **Total words:** %d", o.Summary.Words),
		fmt.Sprintf("- **Total reading time:** %s", o.Summary.ReadingTime()),
		"\n### Breakdown by Source",
	)
	for _, s := range o.Sources {
		lines = append(lines, fmt.Sprintf("- **%s:** %d entries, %d words, %s reading time", s.Name, s.Entries, s.Words, s.ReadingTime))
	}

	lines = append(lines, fmt.Sprintf("\n### Longest %d articles by source", LongestPerSource))
	for _, l := range o.Longest {
		lines = append(lines, fmt.Sprintf("- %s #%d: [%s](%s) (%d words, %s reading time)", l.Source, l.Rank, l.Title, l.Link, l.Words, l.ReadingTime))
	}
	return strings.Join(lines, "\n")
}

// InjectReadme replaces the text between the first StartMarker and the
// following EndMarker with content. Without both markers the block is
// appended.
func InjectReadme(readme, content string) string {
	if start := strings.Index(readme, StartMarker); start >= 0 {
		rest := readme[start+len(StartMarker):]
		if end := strings.Index(rest, EndMarker); end >= 0 {
			return readme[:start] + StartMarker + "\n" + content + "\n" + EndMarker + rest[end+len(EndMarker):]
		}
	}
	return readme + "\n\n" + StartMarker + "\n" + content + "\n" + EndMarker + "\n"
}
