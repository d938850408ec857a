package ir

// Version constants for the row format and generator.
const (
	// IRVersion is the row serialization version.
	IRVersion = "1"

	// GeneratorVersion is the datagen generator version.
	GeneratorVersion = "0.1.0"
)
