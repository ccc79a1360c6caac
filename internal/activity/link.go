package activity

import "strings"

// CanonicalLink returns the comparison key for a link: surrounding whitespace
// and trailing slashes removed, lowercased. The display form is untouched.
func CanonicalLink(link string) string {
	key := strings.TrimSpace(link)
	key = strings.TrimRight(key, "/")
	return strings.ToLower(key)
}
