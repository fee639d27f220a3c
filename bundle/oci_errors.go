package bundle

import (
	"errors"
	"fmt"

	"github.com/meigma/errhist/bundle/oras"
)

// mapOCIError translates low-level ORAS errors to bundle-level sentinel errors.
func mapOCIError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, oras.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
