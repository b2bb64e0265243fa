// Package engine runs herald evaluation cycles.
//
// A cycle evaluates one revision update:
//
//  1. Stamp a cycle token (UUIDv7 in production).
//  2. Load the event's diff and check it belongs to the revision.
//  3. Rehydrate the revision as the system actor through
//     differential.NewLegacyAdapter.
//  4. Ask the EffectSource (rule matching, external to herald) for effects.
//  5. Apply them; every effect yields one transcript.
//  6. Stamp transcripts with the logical clock, seal their content IDs and
//     write the cycle, its transcripts, the queued build plans and the
//     revision's reviewer and CC edges to the store in one transaction.
//
// Failures in steps 2 to 4 abort the cycle before any effect is applied
// and are reported as *CycleError. After step 5 starts the cycle no longer
// fails per effect; failures surface as unapplied transcripts.
//
// # Ordering
//
// Transcripts are ordered by the logical clock, never wall time. The
// background worker (Enqueue/Run) evaluates jobs one at a time in FIFO
// order, so the audit log is reproducible from the job sequence.
package engine
