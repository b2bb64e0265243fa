// Package store provides SQLite-backed storage for herald.
//
// It holds two kinds of data:
//   - Revision data read during evaluation: revisions with reviewer and CC
//     edges, diffs, changesets, hunks, repositories and owners packages.
//   - The append-only audit log written after evaluation: one row per
//     cycle, its transcripts and the build-plan queue. WriteCycle stores a
//     cycle and the revision edges it changed in a single transaction.
//
// Store implements every data-access interface of package differential.
//
// # Ordering
//
// Every multi-row read has an explicit ORDER BY so repeated reads return
// identical results. Transcripts order by seq ASC, id ASC COLLATE BINARY;
// queued build plans by position; cycles in write order.
//
// # Visibility
//
// QueryRevisions filters by actor: ordinary viewers only see revisions
// they author or review. The system actor sees everything, which is what
// background rehydration relies on.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
