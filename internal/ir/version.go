package ir

// Version constants for the graph model and engine.
const (
	// IRVersion is the graph model version.
	IRVersion = "1"

	// EngineVersion is the eventloop engine version.
	EngineVersion = "0.1.0"
)
