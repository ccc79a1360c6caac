// Package store persists the intermediate CSV files that connect pipeline
// stages: sources_{kind}.csv, content_{kind}.csv and statistics_{kind}.csv.
// Files of the same kind are joined on their Link column.
package store
