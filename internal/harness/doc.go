// Package harness runs herald scenarios: a store fixture, one revision
// update event and the effects rule matching produced for it, checked
// against expected transcripts, build plans and revision edges.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: build_plans_queued
//	description: "Global rule queues build plans for the new diff"
//	cycle_token: cycle-build-plans
//	fixture:
//	  revisions:
//	    - { id: 42, phid: PHID-DREV-42, title: "Fix parser", author: PHID-USER-1 }
//	  diffs:
//	    - { id: 7, phid: PHID-DIFF-7, revision: 42 }
//	event: { revision: 42, diff: 7 }
//	effects:
//	  - { rule: PHID-HRUL-1, action: apply-build-plans, target: [PHID-HMBP-1] }
//	expect:
//	  transcripts:
//	    - { action: apply-build-plans, applied: true, reason: "Applied build plans." }
//	  build_plans: [PHID-HMBP-1]
//
// Effects may instead come from a CUE file with effects_file, resolved
// relative to the scenario file.
//
// A scenario that expects the cycle to fail names the error code:
//
//	expect:
//	  error: REVISION_NOT_FOUND
//
// # Deterministic Execution
//
// Every scenario runs in a fresh in-memory SQLite store through the real
// engine, with a fixed cycle token and a logical clock starting at 0, so
// the same scenario always yields the same transcripts. Snapshots of the
// transcripts are compared against golden files with goldie.
package harness
