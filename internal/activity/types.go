package activity

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical on-disk and display form of an entry date.
const DateLayout = "2006-01-02"

// MinYear is the earliest year an entry may carry.
const MinYear = 1970

// ErrUnresolvedDate marks a candidate whose activity date could not be determined.
var ErrUnresolvedDate = errors.New("activity: unresolved date")

// SourceType identifies which adapter produced an entry. It drives color
// theming and breakdown grouping and never changes after assignment.
type SourceType string

// Known source types.
const (
	SourceStructuredAPI SourceType = "structured_api"
	SourceStaticIndex   SourceType = "static_index"
	SourceLegacyCrawl   SourceType = "legacy_crawl"
	SourceCommitHistory SourceType = "commit_history"
	SourceReadme        SourceType = "readme"
)

// SourceTypes lists every known source type in display order.
var SourceTypes = []SourceType{
	SourceStructuredAPI,
	SourceStaticIndex,
	SourceLegacyCrawl,
	SourceCommitHistory,
	SourceReadme,
}

// Source kinds are the configuration tags adapters are registered under.
// Intermediate files are written one set per kind.
const (
	KindWordPress  = "wordpress"
	KindQuartz     = "quartz"
	KindLegacyHTML = "legacy_html"
	KindGitHub     = "github"
)

// Kinds lists the adapter kinds in their default invocation order.
var Kinds = []string{KindWordPress, KindQuartz, KindLegacyHTML, KindGitHub}

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	for _, known := range SourceTypes {
		if s == known {
			return true
		}
	}
	return false
}

// Kind maps a source type back to the adapter kind that emits it.
func (s SourceType) Kind() string {
	switch s {
	case SourceStructuredAPI:
		return KindWordPress
	case SourceStaticIndex:
		return KindQuartz
	case SourceLegacyCrawl:
		return KindLegacyHTML
	case SourceCommitHistory, SourceReadme:
		return KindGitHub
	default:
		return ""
	}
}

// DisplayName is the human label used in reports.
func (s SourceType) DisplayName() string {
	switch s {
	case SourceStructuredAPI:
		return "WordPress"
	case SourceStaticIndex:
		return "Quartz"
	case SourceLegacyCrawl:
		return "Legacy HTML"
	case SourceCommitHistory:
		return "GitHub commits"
	case SourceReadme:
		return "GitHub READMEs"
	default:
		return string(s)
	}
}

// ParseSourceType validates a persisted Type column value.
func ParseSourceType(raw string) (SourceType, error) {
	s := SourceType(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown source type %q", raw)
	}
	return s, nil
}

// Entry is one published or authored artifact on the timeline.
type Entry struct {
	Link       string
	Date       time.Time
	Title      string
	SourceType SourceType
	// RawContent is optional source markup; later stages may fill it lazily.
	RawContent string
	WordCount  int
	CharCount  int
}

// DateString renders the entry date as YYYY-MM-DD.
func (e Entry) DateString() string {
	return e.Date.Format(DateLayout)
}

// Year returns the calendar year of the entry.
func (e Entry) Year() int {
	return e.Date.Year()
}

// Key is the identity of the entry inside a merged set.
func (e Entry) Key() string {
	return CanonicalLink(e.Link)
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// ValidDate reports whether t falls inside [1970, now.Year()+1].
func ValidDate(t, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	y := t.Year()
	return y >= MinYear && y <= now.Year()+1
}
