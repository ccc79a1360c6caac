// Package heatmap renders one calendar year of activity as an SVG grid of
// day cells, GitHub contribution-graph style.
//
// Output is byte-reproducible: identical buckets always render identical
// documents.
package heatmap

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/stats"
)

// Grid geometry.
const (
	Weeks      = 53
	CellSize   = 10
	CellMargin = 2
	Width      = Weeks*(CellSize+CellMargin) + 40
	Height     = 7*(CellSize+CellMargin) + 40

	gridLeft  = 30
	gridTop   = 18
	textColor = "#767676"
)

// EmptyColor fills days without entries.
const EmptyColor = "#ebedf0"

// Levels is the number of intensity steps in a ramp.
const Levels = 4

// Theme is a four-step color ramp plus the swatch shown in the legend.
type Theme struct {
	Label  string
	Ramp   [Levels]string
	Legend string
}

// DefaultThemes maps adapter kinds to their ramps, in legend order.
var DefaultThemes = []struct {
	Kind  string
	Theme Theme
}{
	{activity.KindWordPress, Theme{Label: "WordPress", Ramp: [Levels]string{"#9be9a8", "#40c463", "#30a14e", "#216e39"}, Legend: "#30a14e"}},
	{activity.KindQuartz, Theme{Label: "Quartz", Ramp: [Levels]string{"#ffcdd2", "#ef9a9a", "#e57373", "#ef5350"}, Legend: "#e57373"}},
	{activity.KindLegacyHTML, Theme{Label: "Legacy HTML", Ramp: [Levels]string{"#bbdefb", "#90caf9", "#64b5f6", "#42a5f5"}, Legend: "#64b5f6"}},
	{activity.KindGitHub, Theme{Label: "GitHub", Ramp: [Levels]string{"#fff3e0", "#ffcc80", "#ffa726", "#fb8c00"}, Legend: "#ffa726"}},
}

var months = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var (
	tooltipEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "{", "&#123;", "}", "&#125;")
	attrEscaper    = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#10;", "\r", "&#13;", "\t", "&#9;")
)

// Renderer draws year grids. The zero value is usable.
type Renderer struct {
	// DayArchiveURL builds the link for days with more than one entry. When
	// nil those cells link to their first entry.
	DayArchiveURL func(day time.Time) string
}

// Level maps a day count to an intensity step in [1, Levels] relative to the
// busiest day of the year. Zero counts return 0.
func Level(count, maxCount int) int {
	if count <= 0 {
		return 0
	}
	if maxCount <= 0 {
		return 1
	}
	level := (count*Levels + maxCount - 1) / maxCount
	if level < 1 {
		level = 1
	}
	if level > Levels {
		level = Levels
	}
	return level
}

// ThemeFor returns the ramp for a source type. Commit and README entries
// share the GitHub ramp. Unknown types fall back to the first theme.
func ThemeFor(st activity.SourceType) Theme {
	kind := st.Kind()
	for _, t := range DefaultThemes {
		if t.Kind == kind {
			return t.Theme
		}
	}
	return DefaultThemes[0].Theme
}

// Color picks the fill for a day's bucket. The first entry decides the theme.
func Color(entries []activity.Entry, maxCount int) string {
	if len(entries) == 0 {
		return EmptyColor
	}
	return ThemeFor(entries[0].SourceType).Ramp[Level(len(entries), maxCount)-1]
}

// Tooltip is the unescaped hover text for a day.
func Tooltip(day time.Time, entries []activity.Entry) string {
	noun := "entries"
	if len(entries) == 1 {
		noun = "entry"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d %s", day.Format(activity.DateLayout), len(entries), noun)
	for _, e := range entries {
		b.WriteByte('\n')
		b.WriteString(e.Title)
	}
	return b.String()
}

// Link is the hyperlink target for a non-empty day.
func (r Renderer) Link(day time.Time, entries []activity.Entry) string {
	if len(entries) > 1 && r.DayArchiveURL != nil {
		return r.DayArchiveURL(day)
	}
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Link
}

// Render draws the grid for year.
func (r Renderer) Render(year int, buckets stats.Buckets) []byte {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	curr := start.AddDate(0, 0, -int(start.Weekday()))
	maxCount := buckets.MaxInYear(year)

	parts := []string{fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg" style="background-color: white;">`, Width, Height)}
	for i, label := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		if i%2 == 1 {
			parts = append(parts, fmt.Sprintf(`<text x="5" y="%d" font-family="sans-serif" font-size="8" fill="%s">%s</text>`,
				i*(CellSize+CellMargin)+27, textColor, label))
		}
	}

	lastMonth := time.Month(0)
	for week := 0; week < Weeks && !curr.After(end); week++ {
		x := week*(CellSize+CellMargin) + gridLeft
		if curr.Year() == year && curr.Month() != lastMonth {
			parts = append(parts, fmt.Sprintf(`<text x="%d" y="12" font-family="sans-serif" font-size="8" fill="%s">%s</text>`,
				x, textColor, months[curr.Month()-1]))
			lastMonth = curr.Month()
		}
		for day := 0; day < 7 && !curr.After(end); day++ {
			if !curr.Before(start) {
				parts = append(parts, r.cell(curr, buckets.Day(curr), maxCount, x, day*(CellSize+CellMargin)+gridTop))
			}
			curr = curr.AddDate(0, 0, 1)
		}
	}

	lx := gridLeft
	ly := Height - 12
	for _, t := range DefaultThemes {
		parts = append(parts,
			fmt.Sprintf(`<rect x="%d" y="%d" width="8" height="8" fill="%s" rx="1" ry="1"/>`, lx, ly, t.Theme.Legend),
			fmt.Sprintf(`<text x="%d" y="%d" font-family="sans-serif" font-size="7" fill="%s">%s</text>`, lx+12, ly+7, textColor, t.Theme.Label),
		)
		lx += 70
	}
	parts = append(parts, "</svg>")

	return []byte(strings.Join(parts, "\n"))
}

func (r Renderer) cell(day time.Time, entries []activity.Entry, maxCount, x, y int) string {
	rect := fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" rx="2" ry="2"><title>%s</title></rect>`,
		x, y, CellSize, CellSize, Color(entries, maxCount), tooltipEscaper.Replace(Tooltip(day, entries)))
	if len(entries) == 0 {
		return rect
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, attrEscaper.Replace(r.Link(day, entries)), rect)
}

// ArchiveURL builds a DayArchiveURL func from a pattern containing {yyyy},
// {mm} and {dd} placeholders. An empty pattern yields nil.
func ArchiveURL(pattern string) func(time.Time) string {
	if pattern == "" {
		return nil
	}
	return func(day time.Time) string {
		return strings.NewReplacer(
			"{yyyy}", day.Format("2006"),
			"{mm}", day.Format("01"),
			"{dd}", day.Format("02"),
		).Replace(pattern)
	}
}
