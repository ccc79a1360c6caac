// Package crawler discovers dated pages on a hand-written HTML site by a
// bounded breadth-first traversal. The frontier, visited set, and accepted set
// are owned by a single Run, so nothing leaks between runs.
package crawler
