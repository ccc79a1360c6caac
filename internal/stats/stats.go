// Package stats reduces a merged entry set into daily buckets and per-year
// and per-source totals.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
)

// WordsPerMinute is the reading speed used for reading-time estimates.
const WordsPerMinute = 200

// Buckets maps a YYYY-MM-DD date to its entries in input order.
type Buckets map[string][]activity.Entry

// BuildBuckets groups entries by date, preserving input order within a day.
func BuildBuckets(entries []activity.Entry) Buckets {
	b := make(Buckets)
	for _, e := range entries {
		day := e.DateString()
		b[day] = append(b[day], e)
	}
	return b
}

// Day returns the entries for t's calendar date.
func (b Buckets) Day(t time.Time) []activity.Entry {
	return b[t.Format(activity.DateLayout)]
}

// MaxInYear is the largest bucket size among days of year.
func (b Buckets) MaxInYear(year int) int {
	maxCount := 0
	for _, entries := range b {
		if len(entries) == 0 || entries[0].Year() != year {
			continue
		}
		if len(entries) > maxCount {
			maxCount = len(entries)
		}
	}
	return maxCount
}

// Summary holds totals for a set of entries.
type Summary struct {
	Entries        int
	Days           int
	Words          int
	Chars          int
	ReadingMinutes int
}

// ReadingTime formats the summary's reading time.
func (s Summary) ReadingTime() string {
	return FormatMinutes(s.ReadingMinutes)
}

// Summarize totals entries.
func Summarize(entries []activity.Entry) Summary {
	days := make(map[string]struct{})
	var s Summary
	for _, e := range entries {
		s.Entries++
		s.Words += e.WordCount
		s.Chars += e.CharCount
		days[e.DateString()] = struct{}{}
	}
	s.Days = len(days)
	s.ReadingMinutes = ReadingMinutes(s.Words)
	return s
}

// ReadingMinutes is ceil(words / WordsPerMinute).
func ReadingMinutes(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// FormatMinutes renders minutes as "{h}h {m}m".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// ReadingTime formats the reading time for a word count.
func ReadingTime(words int) string {
	return FormatMinutes(ReadingMinutes(words))
}

// SourceSummary is a Summary scoped to one source type.
type SourceSummary struct {
	SourceType activity.SourceType
	Summary
}

// BySource summarizes each source type present, in activity.SourceTypes order.
func BySource(entries []activity.Entry) []SourceSummary {
	groups := groupBySource(entries)
	var out []SourceSummary
	for _, st := range orderedTypes(groups) {
		out = append(out, SourceSummary{SourceType: st, Summary: Summarize(groups[st])})
	}
	return out
}

// ByYear groups entries by calendar year.
func ByYear(entries []activity.Entry) map[int][]activity.Entry {
	out := make(map[int][]activity.Entry)
	for _, e := range entries {
		out[e.Year()] = append(out[e.Year()], e)
	}
	return out
}

// SourceCount is one slice of a year breakdown.
type SourceCount struct {
	SourceType activity.SourceType
	Count      int
}

// YearBreakdown counts the entries of year per source type.
func YearBreakdown(entries []activity.Entry, year int) []SourceCount {
	counts := make(map[activity.SourceType][]activity.Entry)
	for _, e := range entries {
		if e.Year() == year {
			counts[e.SourceType] = append(counts[e.SourceType], e)
		}
	}
	var out []SourceCount
	for _, st := range orderedTypes(counts) {
		out = append(out, SourceCount{SourceType: st, Count: len(counts[st])})
	}
	return out
}

// Longest returns the n entries with the most words. The sort is stable, so
// ties keep their input order.
func Longest(entries []activity.Entry, n int) []activity.Entry {
	sorted := append([]activity.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].WordCount > sorted[j].WordCount
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// SourceLongest is the top-n list for one source type.
type SourceLongest struct {
	SourceType activity.SourceType
	Entries    []activity.Entry
}

// LongestBySource applies Longest within each source type.
func LongestBySource(entries []activity.Entry, n int) []SourceLongest {
	groups := groupBySource(entries)
	var out []SourceLongest
	for _, st := range orderedTypes(groups) {
		out = append(out, SourceLongest{SourceType: st, Entries: Longest(groups[st], n)})
	}
	return out
}

// Years lists the years with at least one in-range entry, newest first.
// Years before minYear are skipped when minYear is positive.
func Years(entries []activity.Entry, now time.Time, minYear int) []int {
	set := make(map[int]struct{})
	for _, e := range entries {
		if !activity.ValidDate(e.Date, now) {
			continue
		}
		if minYear > 0 && e.Year() < minYear {
			continue
		}
		set[e.Year()] = struct{}{}
	}
	years := make([]int, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

func groupBySource(entries []activity.Entry) map[activity.SourceType][]activity.Entry {
	groups := make(map[activity.SourceType][]activity.Entry)
	for _, e := range entries {
		groups[e.SourceType] = append(groups[e.SourceType], e)
	}
	return groups
}

// orderedTypes returns the keys of groups: known types first in their
// declared order, then unknown ones lexically.
func orderedTypes(groups map[activity.SourceType][]activity.Entry) []activity.SourceType {
	var out []activity.SourceType
	for _, st := range activity.SourceTypes {
		if len(groups[st]) > 0 {
			out = append(out, st)
		}
	}
	var unknown []activity.SourceType
	for st, g := range groups {
		if !st.Valid() && len(g) > 0 {
			unknown = append(unknown, st)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(out, unknown...)
}
