package dates

import (
	"strings"
	"time"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
)

var (
	isoDate       = NewPattern(`\b(\d{4}-\d{2}-\d{2})\b`, "2006-01-02")
	dottedDate    = NewPattern(`\b(\d{2}\.\d{2}\.\d{4})\b`, "02.01.2006")
	longDate      = NewPattern(`\b([A-Z][a-z]+ \d{1,2}, \d{4})\b`, "January 2, 2006")
	europeanLong  = NewPattern(`\b(\d{1,2}\. [A-Z][a-z]+ \d{4})\b`, "2. January 2006")
	slugFullDate  = NewPattern(`(\d{4})[/-](\d{2})[/-](\d{2})`, "2006-01-02")
	slugYearMonth = NewPattern(`(\d{4})[/-](\d{2})`, "2006-01")
	bareYear      = NewPattern(`\b(\d{4})\b`, "2006")
	feedDay       = NewPattern(`(\d{1,2} \w{3} \d{4})`, "2 Jan 2006")
)

// ISOPrefix parses timestamps such as "2024-03-05T10:11:12" or RFC 3339 by
// truncating everything after the date.
var ISOPrefix = StrategyFunc(func(text string) (time.Time, bool) {
	raw := strings.TrimSpace(text)
	if i := strings.IndexAny(raw, "T "); i >= 0 {
		raw = raw[:i]
	}
	t, err := time.Parse(activity.DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
})

// FeedDate parses RSS pubDate and Atom timestamps.
var FeedDate = StrategyFunc(func(text string) (time.Time, bool) {
	raw := strings.TrimSpace(text)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return activity.Day(t), true
		}
	}
	return feedDay.Resolve(raw)
})

// PageChain recognizes dates printed in hand-written page bodies.
func PageChain() Chain {
	return Chain{isoDate, dottedDate, longDate, europeanLong}
}

// SlugChain infers a date from a slug: full date, then year-month (day 01),
// then a bare year (January 1st).
func SlugChain() Chain {
	return Chain{slugFullDate, slugYearMonth, bareYear}
}

// ContentChain finds an ISO date embedded in prose.
func ContentChain() Chain {
	return Chain{isoDate}
}

// FilePathChain accepts only fully specified dates in a source path.
func FilePathChain() Chain {
	return Chain{slugFullDate}
}

// TimestampChain handles explicit API timestamp fields.
func TimestampChain() Chain {
	return Chain{ISOPrefix}
}

// FeedChain handles feed publication dates.
func FeedChain() Chain {
	return Chain{FeedDate}
}
