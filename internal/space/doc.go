// Package space provides the record model for spacelink.
//
// This package contains the value types shared by every other internal
// package. space imports nothing internal, so the store, the relationship
// engine and the drift detector can all depend on it without cycles.
//
// Key design constraints:
//   - Record.ID is the natural key and is never regenerated
//   - Record.ConnectedIDs is sorted, de-duplicated and never contains Record.ID
//   - Airflow values are finite; NaN and Inf are rejected at the boundary
//   - All JSON and YAML tags use snake_case
package space
