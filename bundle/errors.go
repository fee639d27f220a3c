package bundle

import "errors"

// Sentinel errors for bundle operations.
var (
	// ErrNotFound is returned when a bundle does not exist at the reference.
	ErrNotFound = errors.New("bundle: not found")

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = errors.New("bundle: invalid reference")

	// ErrInvalidManifest is returned when a manifest is not a valid bundle manifest.
	ErrInvalidManifest = errors.New("bundle: invalid manifest")

	// ErrMissingArtifact is returned when a file the manifest names is absent.
	ErrMissingArtifact = errors.New("bundle: missing artifact")

	// ErrDigestMismatch is returned when content does not match its recorded digest.
	ErrDigestMismatch = errors.New("bundle: digest mismatch")

	// ErrSizeMismatch is returned when content size does not match its recorded size.
	ErrSizeMismatch = errors.New("bundle: size mismatch")
)
