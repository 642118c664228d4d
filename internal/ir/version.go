package ir

// Version constants for the model IR and kernel.
const (
	// IRVersion is the model IR schema version.
	IRVersion = "1"

	// KernelVersion is the simkernel version stamped on journalled runs.
	KernelVersion = "0.1.0"
)
