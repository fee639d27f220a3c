//go:build !linux

package sgio

import (
	"time"

	"github.com/meigma/errhist"
)

// Device is only functional on Linux; every operation here reports
// ErrUnsupported.
type Device struct{}

func Open(path string) (*Device, error) {
	return nil, ErrUnsupported
}

func (d *Device) Name() string { return "" }

func (d *Device) Close() error { return ErrUnsupported }

func (d *Device) Execute(cdb, data []byte, timeout time.Duration) errhist.Completion {
	return errhist.Completion{Status: errhist.CompletionError, Err: ErrUnsupported}
}
