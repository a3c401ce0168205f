package ir

// Version constants for records and the engine.
const (
	// IRVersion is the record schema version.
	IRVersion = "1"

	// EngineVersion is the eqsat engine version.
	EngineVersion = "0.1.0"
)
