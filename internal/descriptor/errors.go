package descriptor

import "errors"

var (
	// ErrLoaderClosed is returned when a Loader is used after Close.
	ErrLoaderClosed = errors.New("descriptor loader closed")

	// ErrBadDescriptor indicates a script that ran but produced a value
	// the loader cannot register.
	ErrBadDescriptor = errors.New("bad descriptor")
)
