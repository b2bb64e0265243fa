// Package ir provides the shared domain types for herald.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. Revisions, diffs, changesets and
// owners packages are plain data loaded by the store; effects and
// transcripts are the inbound and outbound records of one evaluation cycle.
//
// Key design constraints:
//   - Effect targets use the sealed Value types, never interface{}
//   - No float types in Value (use Int for numbers)
//   - All JSON tags use snake_case
//   - Transcript IDs are content-addressed via canonical JSON
package ir
