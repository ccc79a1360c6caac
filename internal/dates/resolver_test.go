package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
}

func ymd(t *testing.T, got time.Time, ok bool) string {
	t.Helper()
	require.True(t, ok, "expected a resolved date")
	return got.Format("2006-01-02")
}

func TestPageChainPriority(t *testing.T) {
	t.Parallel()

	r := NewResolver(fixedNow)
	got, ok := r.Resolve("updated 03.05.2024, written 2024-03-05", PageChain())
	assert.Equal(t, "2024-03-05", ymd(t, got, ok))
}

func TestPageChainFormats(t *testing.T) {
	t.Parallel()

	r := NewResolver(fixedNow)
	cases := map[string]string{
		"Stand: 17.06.2001":           "2001-06-17",
		"Posted March 4, 2003 by me":  "2003-03-04",
		"geschrieben am 9. July 1999": "1999-07-09",
	}
	for text, want := range cases {
		got, ok := r.Resolve(text, PageChain())
		assert.Equal(t, want, ymd(t, got, ok), text)
	}
}

func TestSlugChain(t *testing.T) {
	t.Parallel()

	r := NewResolver(fixedNow)
	cases := map[string]string{
		"notes/2023/07/14/trip": "2023-07-14",
		"2023/07/blog":          "2023-07-01",
		"2022-11-draft":         "2022-11-01",
		"archive/2019 thoughts": "2019-01-01",
	}
	for slug, want := range cases {
		got, ok := r.Resolve(slug, SlugChain())
		assert.Equal(t, want, ymd(t, got, ok), slug)
	}
}

func TestUnresolved(t *testing.T) {
	t.Parallel()

	r := NewResolver(fixedNow)
	_, ok := r.Resolve("no dates here", PageChain())
	assert.False(t, ok)
	_, ok = r.Resolve("", SlugChain())
	assert.False(t, ok)
	_, ok = r.Resolve("2024-13-45", ContentChain())
	assert.False(t, ok, "impossible calendar date must not resolve")
}

func TestOutOfRangeContinuesChain(t *testing.T) {
	t.Parallel()

	r := NewResolver(fixedNow)
	// 1234 is a bare year below the supported range; the slug has nothing else.
	_, ok := r.Resolve("page-1234", SlugChain())
	assert.False(t, ok)

	// The full date is out of range, so the dotted date later in the chain wins.
	got, ok := r.Resolve("1901-01-01 and 02.03.2004", PageChain())
	assert.Equal(t, "2004-03-02", ymd(t, got, ok))
}

func TestFirstWalksSteps(t *testing.T) {
	t.Parallel()

	r := NewResolver(fixedNow)
	got, ok := r.First(
		Step{Text: "", Chain: TimestampChain()},
		Step{Text: "misc/notes", Chain: SlugChain()},
		Step{Text: "see 2021-02-03 entry", Chain: ContentChain()},
		Step{Text: "content/2020/01/01/x.md", Chain: FilePathChain()},
	)
	assert.Equal(t, "2021-02-03", ymd(t, got, ok))
}

func TestTimestampAndFeed(t *testing.T) {
	t.Parallel()

	r := NewResolver(fixedNow)
	got, ok := r.Resolve("2024-05-01T23:59:59", TimestampChain())
	assert.Equal(t, "2024-05-01", ymd(t, got, ok))

	got, ok = r.Resolve("Mon, 02 Jan 2006 15:04:05 +0000", FeedChain())
	assert.Equal(t, "2006-01-02", ymd(t, got, ok))

	got, ok = r.Resolve("Tue, 7 Mar 2023 10:00:00 GMT", FeedChain())
	assert.Equal(t, "2023-03-07", ymd(t, got, ok))
}
