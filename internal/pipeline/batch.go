package pipeline

import (
	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/source"
)

// Batch holds entries grouped by adapter kind, in kind order.
type Batch struct {
	Kinds   []string
	Entries map[string][]activity.Entry
}

func newBatch(kinds []string) Batch {
	return Batch{Kinds: kinds, Entries: make(map[string][]activity.Entry, len(kinds))}
}

// All concatenates the batch in kind order.
func (b Batch) All() []activity.Entry {
	var out []activity.Entry
	for _, k := range b.Kinds {
		out = append(out, b.Entries[k]...)
	}
	return out
}

// Len counts every entry in the batch.
func (b Batch) Len() int {
	n := 0
	for _, es := range b.Entries {
		n += len(es)
	}
	return n
}

// KindsOf lists the distinct kinds of descriptors in first-seen order, or
// activity.Kinds when there are none.
func KindsOf(descriptors []source.Descriptor) []string {
	if len(descriptors) == 0 {
		return append([]string(nil), activity.Kinds...)
	}
	seen := make(map[string]struct{})
	var kinds []string
	for _, d := range descriptors {
		if _, ok := seen[d.Kind]; ok {
			continue
		}
		seen[d.Kind] = struct{}{}
		kinds = append(kinds, d.Kind)
	}
	return kinds
}
