// Package activity defines the normalized timeline model shared by every
// stage of the pipeline: the Entry record, source types, canonical links,
// and the fetch/clock contracts adapters depend on.
package activity
