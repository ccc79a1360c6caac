package crawler

import "strings"

// pathDenylist stores exact paths and file-name suffixes of structural pages
// (frames, navigation, indexes) that never become entries.
type pathDenylist struct {
	exact    map[string]struct{}
	suffixes []string
}

func newPathDenylist(patterns []string) *pathDenylist {
	matcher := &pathDenylist{
		exact: make(map[string]struct{}),
	}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "/"):
			matcher.exact[value] = struct{}{}
		case strings.HasPrefix(value, "*"):
			suffix := strings.TrimPrefix(value, "*")
			if suffix != "" {
				matcher.addSuffix(suffix)
			}
		default:
			matcher.addSuffix(value)
		}
	}
	if len(matcher.exact) == 0 && len(matcher.suffixes) == 0 {
		return nil
	}
	return matcher
}

func (b *pathDenylist) addSuffix(suffix string) {
	for _, existing := range b.suffixes {
		if existing == suffix {
			return
		}
	}
	b.suffixes = append(b.suffixes, suffix)
}

// IsDenied reports whether the URL path matches an exact entry or ends with a suffix.
func (b *pathDenylist) IsDenied(urlPath string) bool {
	if b == nil {
		return false
	}
	p := strings.TrimSpace(strings.ToLower(urlPath))
	if p == "" {
		return false
	}
	if _, exact := b.exact[p]; exact {
		return true
	}
	for _, suffix := range b.suffixes {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// extSet is a lowercased set of file extensions including the leading dot.
type extSet map[string]struct{}

func newExtSet(exts []string) extSet {
	set := make(extSet, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

func (s extSet) has(ext string) bool {
	_, ok := s[ext]
	return ok
}
