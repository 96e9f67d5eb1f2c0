package autobatch

import "errors"

var (
	// ErrInsufficientProbeData means fewer than two probes produced a usable
	// memory reading, so no line can be fitted.
	ErrInsufficientProbeData = errors.New("insufficient probe data")
	// ErrDegenerateFit means the fitted line cannot be solved for a batch
	// size, e.g. memory does not grow with batch size.
	ErrDegenerateFit = errors.New("degenerate memory fit")
)
