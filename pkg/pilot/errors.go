package pilot

import "errors"

var (
	// ErrFrameTimeout is returned when no frame arrives within Config.FrameTimeout.
	ErrFrameTimeout = errors.New("pilot: frame acquisition timed out")

	// ErrVisionFailing is returned when estimation fails for
	// Config.MaxEstimateErrors consecutive cycles.
	ErrVisionFailing = errors.New("pilot: vision failing")

	// ErrAlreadyRun is returned when Run is called on a loop that has left Initializing.
	ErrAlreadyRun = errors.New("pilot: loop already started")

	// ErrMissingDependency is returned by NewLoop when a required collaborator is nil.
	ErrMissingDependency = errors.New("pilot: missing dependency")
)
