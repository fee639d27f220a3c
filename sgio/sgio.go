// Package sgio submits SCSI commands through the Linux SCSI generic (sg)
// driver.
//
// Open verifies the target node is bound to the sg driver before handing
// back a Device, so commands never land on an unrelated character device.
// Device implements errhist.Transport.
package sgio

import "errors"

var (
	// ErrNotSG marks a node that did not answer the sg version probe.
	ErrNotSG = errors.New("sgio: not an sg device")

	// ErrUnsupported is returned on platforms without the sg driver.
	ErrUnsupported = errors.New("sgio: platform not supported")
)
