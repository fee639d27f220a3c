//go:build linux

package sgio

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/meigma/errhist"
)

// Constants from the kernel's scsi generic driver interface, <scsi/sg.h>.
const (
	sgIO            = 0x2285
	sgGetVersionNum = 0x2282

	sgDxferNone    = -1
	sgDxferFromDev = -3

	sgInfoOkMask = 0x1
	sgInfoOk     = 0x0

	senseBufLen = 64

	// minSGVersion is driver version 3.0.0, the first with the sg_io_hdr
	// interface.
	minSGVersion = 30000
)

// sgIoHdr mirrors struct sg_io_hdr on 64-bit targets. Field order and
// padding must match the kernel exactly.
type sgIoHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         *byte
	cmdp           *byte
	sbp            *byte
	timeout        uint32
	flags          uint32
	packID         int32
	pad0           [4]byte
	usrPtr         *byte
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// Device is an open sg node. It implements errhist.Transport. A Device
// issues one command at a time; it is not safe for concurrent use.
type Device struct {
	f *os.File
}

// Open opens an sg node read-write and probes the driver version. Nodes
// that do not answer the probe, or report a version before 3.0.0, fail
// with an error wrapping ErrNotSG.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}

	var version uint32
	if err := ioctl(f.Fd(), sgGetVersionNum, unsafe.Pointer(&version)); err != nil || version < minSGVersion {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotSG, path)
	}
	return &Device{f: f}, nil
}

// Name returns the path the device was opened with.
func (d *Device) Name() string { return d.f.Name() }

// Close releases the device node.
func (d *Device) Close() error { return d.f.Close() }

// Execute submits one CDB through the SG_IO ioctl, reading the response
// into data when it is non-empty. The timeout is handed to the driver in
// milliseconds.
func (d *Device) Execute(cdb, data []byte, timeout time.Duration) errhist.Completion {
	sense := make([]byte, senseBufLen)

	hdr := sgIoHdr{
		interfaceID:    'S',
		dxferDirection: sgDxferNone,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        senseBufLen,
		timeout:        uint32(timeout.Milliseconds()),
		cmdp:           &cdb[0],
		sbp:            &sense[0],
	}
	if len(data) > 0 {
		hdr.dxferDirection = sgDxferFromDev
		hdr.dxferLen = uint32(len(data))
		hdr.dxferp = &data[0]
	}

	if err := ioctl(d.f.Fd(), sgIO, unsafe.Pointer(&hdr)); err != nil {
		return errhist.Completion{
			Status: errhist.CompletionError,
			Err:    fmt.Errorf("sgio: SG_IO: %w", err),
		}
	}

	comp := errhist.Completion{Residual: int(hdr.resid)}
	if hdr.info&sgInfoOkMask == sgInfoOk {
		comp.Status = errhist.CompletionGood
		return comp
	}

	if hdr.sbLenWr > 0 {
		if info, ok := ParseSense(sense[:hdr.sbLenWr]); ok {
			comp.Status = errhist.CompletionSense
			comp.Key = info.Key
			comp.ASC = info.ASC
			comp.ASCQ = info.ASCQ
			return comp
		}
	}

	comp.Status = errhist.CompletionError
	comp.Err = fmt.Errorf("sgio: SCSI status %#02x, host status %#02x, driver status %#02x",
		hdr.status, hdr.hostStatus, hdr.driverStatus)
	return comp
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
