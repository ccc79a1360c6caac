// Package dates recovers calendar dates from free text, slugs, and paths.
//
// Resolution is an ordered chain of strategies evaluated short-circuit: the
// first strategy that yields an in-range date wins and no disambiguation is
// attempted. Fully specified patterns are placed ahead of partial ones so a
// complete date always beats a month or a bare year.
package dates

import (
	"regexp"
	"strings"
	"time"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
)

// Strategy extracts a candidate date from text.
type Strategy interface {
	Resolve(text string) (time.Time, bool)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(text string) (time.Time, bool)

// Resolve implements Strategy.
func (f StrategyFunc) Resolve(text string) (time.Time, bool) {
	return f(text)
}

// Pattern matches Re against the text and parses the capture with Layout.
// When Re has several groups they are joined with "-" before parsing, so a
// year/month capture pair parses with the layout "2006-01".
type Pattern struct {
	Re     *regexp.Regexp
	Layout string
}

// NewPattern compiles expr into a Pattern.
func NewPattern(expr, layout string) Pattern {
	return Pattern{Re: regexp.MustCompile(expr), Layout: layout}
}

// Resolve implements Strategy. Only the first match is considered.
func (p Pattern) Resolve(text string) (time.Time, bool) {
	if p.Re == nil || text == "" {
		return time.Time{}, false
	}
	m := p.Re.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	raw := m[0]
	if len(m) > 1 {
		raw = strings.Join(m[1:], "-")
	}
	t, err := time.Parse(p.Layout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return activity.Day(t), true
}

// Chain is an ordered list of strategies.
type Chain []Strategy

// Step pairs a piece of context with the chain applied to it.
type Step struct {
	Text  string
	Chain Chain
}

// Resolver evaluates chains against a supported year range anchored at now.
type Resolver struct {
	now func() time.Time
}

// NewResolver builds a Resolver. A nil now uses time.Now.
func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{now: now}
}

// Resolve returns the first in-range date produced by chain for text.
// Out-of-range results count as misses and evaluation continues.
func (r *Resolver) Resolve(text string, chain Chain) (time.Time, bool) {
	if strings.TrimSpace(text) == "" {
		return time.Time{}, false
	}
	now := r.now()
	for _, s := range chain {
		t, ok := s.Resolve(text)
		if !ok {
			continue
		}
		if !activity.ValidDate(t, now) {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// First walks steps in order and returns the first resolved date.
func (r *Resolver) First(steps ...Step) (time.Time, bool) {
	for _, step := range steps {
		if t, ok := r.Resolve(step.Text, step.Chain); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
