package errhist

import "errors"

// Sentinel errors for extraction operations.
var (
	// ErrSense matches command failures where the device terminated the
	// command with sense data. Use [AsCommandError] to recover the sense key.
	ErrSense = errors.New("errhist: command terminated with sense data")

	// ErrTransport matches command failures below the protocol level, such
	// as a rejected submission or an invalid device handle.
	ErrTransport = errors.New("errhist: command submission failed")

	// ErrDirectoryRead is returned when the error-history directory itself
	// cannot be read. The whole operation aborts with no output.
	ErrDirectoryRead = errors.New("errhist: error history directory read failed")

	// ErrDirectorySave is returned when the raw directory response cannot
	// be persisted. The whole operation aborts.
	ErrDirectorySave = errors.New("errhist: error history directory save failed")
)
