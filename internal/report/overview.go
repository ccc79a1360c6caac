package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/heatmap"
	"github.com/JakeFAU/activity-heatmap/internal/stats"
)

// LongestPerSource is how many entries the longest-articles list shows per
// source type.
const LongestPerSource = 3

// Overview is the data behind every rendered report format.
type Overview struct {
	Title    string
	Years    []YearSection
	Summary  stats.Summary
	Sources  []SourceLine
	Longest  []LongestLine
	Rendered time.Time
}

// YearSection is one year's heatmap and headline.
type YearSection struct {
	Year    int
	SVG     string
	Caption string
}

// SourceLine is one row of the per-source breakdown.
type SourceLine struct {
	Name        string
	Entries     int
	Words       int
	ReadingTime string
}

// LongestLine is one ranked entry in the longest-articles list.
type LongestLine struct {
	Source      string
	Rank        int
	Title       string
	Link        string
	Words       int
	ReadingTime string
}

// BuildOverview reduces a merged entry set. Years are newest first and
// limited to those holding entries.
func BuildOverview(entries []activity.Entry, renderer heatmap.Renderer, now time.Time, minYear int) Overview {
	o := Overview{Title: Title, Summary: stats.Summarize(entries), Rendered: now}
	buckets := stats.BuildBuckets(entries)

	for _, year := range stats.Years(entries, now, minYear) {
		o.Years = append(o.Years, YearSection{
			Year:    year,
			SVG:     string(renderer.Render(year, buckets)),
			Caption: YearCaption(year, stats.YearBreakdown(entries, year)),
		})
	}
	for _, s := range stats.BySource(entries) {
		o.Sources = append(o.Sources, SourceLine{
			Name:        s.SourceType.DisplayName(),
			Entries:     s.Entries,
			Words:       s.Words,
			ReadingTime: s.ReadingTime(),
		})
	}
	for _, group := range stats.LongestBySource(entries, LongestPerSource) {
		for i, e := range group.Entries {
			o.Longest = append(o.Longest, LongestLine{
				Source:      group.SourceType.DisplayName(),
				Rank:        i + 1,
				Title:       e.Title,
				Link:        e.Link,
				Words:       e.WordCount,
				ReadingTime: stats.ReadingTime(e.WordCount),
			})
		}
	}
	return o
}

// YearCaption renders "{n} article(s) in {year}: {k} Name, ...".
func YearCaption(year int, breakdown []stats.SourceCount) string {
	total := 0
	parts := make([]string, 0, len(breakdown))
	for _, b := range breakdown {
		total += b.Count
		parts = append(parts, fmt.Sprintf("%d %s", b.Count, b.SourceType.DisplayName()))
	}
	noun := "articles"
	if total == 1 {
		noun = "article"
	}
	caption := fmt.Sprintf("%d %s in %d", total, noun, year)
	if len(parts) > 0 {
		caption += ": " + strings.Join(parts, ", ")
	}
	return caption
}
