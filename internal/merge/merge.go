// Package merge combines adapter output into one entry set with at most one
// entry per canonical link.
package merge

import (
	"sort"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/metrics"
)

// Merge concatenates batches in the given order and keeps the first entry for
// each canonical link. Later duplicates are dropped whole; fields are never
// combined across duplicates, so batch order decides which version survives.
func Merge(batches ...[]activity.Entry) []activity.Entry {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	out := make([]activity.Entry, 0, total)
	seen := make(map[string]struct{}, total)
	for _, batch := range batches {
		for _, e := range batch {
			key := e.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, e)
		}
	}
	metrics.ObserveDuplicatesDropped(total - len(out))
	return out
}

// Duplicate is one link that occurs more than once.
type Duplicate struct {
	Link  string
	Count int
}

// FindDuplicates reports links occurring more than once, by count descending
// then first appearance. Links are compared in canonical form and reported in
// the display form of their first occurrence.
func FindDuplicates(entries []activity.Entry) []Duplicate {
	type tally struct {
		first int
		link  string
		count int
	}
	byKey := make(map[string]*tally)
	for i, e := range entries {
		key := e.Key()
		t, ok := byKey[key]
		if !ok {
			t = &tally{first: i, link: e.Link}
			byKey[key] = t
		}
		t.count++
	}
	var dups []*tally
	for _, t := range byKey {
		if t.count > 1 {
			dups = append(dups, t)
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].count != dups[j].count {
			return dups[i].count > dups[j].count
		}
		return dups[i].first < dups[j].first
	})
	out := make([]Duplicate, len(dups))
	for i, t := range dups {
		out[i] = Duplicate{Link: t.link, Count: t.count}
	}
	return out
}
