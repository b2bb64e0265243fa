// Package differential implements the herald adapter for code-review
// revisions.
//
// A RevisionAdapter binds one revision and at most one diff for a single
// evaluation cycle. Rule conditions read through its related-data cache
// (changesets, hunks, affected paths, repository, owners packages,
// reviewers); each derived collection is computed at most once per adapter
// and discarded with it.
//
// ApplyEffects handles the revision-specific "apply build plans" action by
// appending the effect's targets to the adapter's build plan queue, and
// delegates every other action to the injected standard applier. The
// queue is read back by the caller through BuildPlans once application
// completes.
//
// NewLegacyAdapter is the trusted rehydration path used by background
// evaluation. It reloads the revision as an explicit system actor with
// relationship data preloaded. It must only be called from system code;
// it refuses non-system actors.
//
// A RevisionAdapter is not safe for concurrent use.
package differential
