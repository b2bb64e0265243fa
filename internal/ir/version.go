package ir

// Version constants for the record schema and adapter.
const (
	// SchemaVersion is the transcript record schema version.
	SchemaVersion = "1"

	// AdapterVersion is the herald adapter version.
	AdapterVersion = "0.1.0"
)
