// Package adapter defines the contract an object type implements to be
// automatable by herald rules.
//
// An Adapter describes what kind of object it wraps (content type, display
// name, description), which rule types may target it, which repetition
// policies are allowed and which actions rules may take under each rule
// type. It also applies the effects a matched rule set produced.
//
// Actions shared by every object type (CC, email, reviewers, flag,
// comment) are applied by a StandardApplier injected into each adapter
// rather than inherited from a base type. Standard is the default
// implementation. Object-specific actions are handled by the adapter
// itself, and anything it does not recognize is delegated to the
// standard applier.
//
// Adapters are single-cycle and not safe for concurrent use.
package adapter
