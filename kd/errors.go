package kd

import "errors"

// Validation error classes. Config validation wraps these with the offending
// section and value so callers can both match and report.
var (
	// ErrUnknownType flags a strategy section whose type identifier is not
	// present in the registry.
	ErrUnknownType = errors.New("unknown strategy type")
	// ErrLayerNotFound flags an event naming a module absent from the
	// student topology. Raised at config-load time: failing at fire time
	// would leave training partially pruned.
	ErrLayerNotFound = errors.New("layer not found in student topology")
	// ErrBadMonitor flags an unparsable trainer.monitor string.
	ErrBadMonitor = errors.New("invalid monitor specification")
)
