package crawler

import "testing"

func TestPathDenylist(t *testing.T) {
	t.Run("suffix match", func(t *testing.T) {
		bl := newPathDenylist([]string{"index.html", "*navigator.html"})
		if bl == nil {
			t.Fatalf("expected denylist to be created")
		}
		cases := []struct {
			path   string
			denied bool
		}{
			{"/site/index.html", true},
			{"/site/INDEX.HTML", true},
			{"/site/navigator.html", true},
			{"/site/2001/trip.html", false},
			{"/site/", false},
		}
		for _, tc := range cases {
			if got := bl.IsDenied(tc.path); got != tc.denied {
				t.Fatalf("path %q denied=%v, want %v", tc.path, got, tc.denied)
			}
		}
	})

	t.Run("exact path", func(t *testing.T) {
		bl := newPathDenylist([]string{"/site/menu.html"})
		if !bl.IsDenied("/site/menu.html") {
			t.Fatalf("expected exact path to be denied")
		}
		if bl.IsDenied("/other/site/menu.html") {
			t.Fatalf("exact entries must not act as suffixes")
		}
	})

	t.Run("nil denylist", func(t *testing.T) {
		var bl *pathDenylist
		if bl.IsDenied("/index.html") {
			t.Fatalf("nil denylist should never deny")
		}
		if newPathDenylist([]string{" ", ""}) != nil {
			t.Fatalf("blank patterns should produce a nil denylist")
		}
	})
}

func TestExtSet(t *testing.T) {
	s := newExtSet([]string{"HTML", ".htm", ""})
	if !s.has(".html") || !s.has(".htm") {
		t.Fatalf("expected normalized extensions, got %v", s)
	}
	if s.has("") {
		t.Fatalf("blank extension must not be stored")
	}
}
