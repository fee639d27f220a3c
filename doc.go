// Package errhist retrieves error-history diagnostic buffers from flash
// storage devices over SCSI READ BUFFER commands.
//
// Devices that implement the error-history mode (UFS 3.0, SPC-4) expose a
// directory buffer describing vendor diagnostic sub-buffers. [Extract] reads
// that directory, validates each advertised entry, and retrieves every
// extractable buffer in bounded chunks, persisting the results through a
// [Sink]. Buffer contents are opaque vendor data and are never interpreted.
//
// The device is reached through a [Transport]. The sgio subpackage
// implements the Transport over the Linux SG_IO passthrough ioctl; tests use
// in-memory fakes.
//
// # Quick Start
//
// Extract all error-history buffers from a device into a directory:
//
//	dev, err := sgio.Open("/dev/sg1")
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	sink, err := errhist.NewDirSink("./out")
//	if err != nil {
//	    return err
//	}
//
//	report, err := errhist.Extract(ctx, dev, sink,
//	    errhist.WithLogger(logger),
//	)
//
// The returned [Report] records how each directory entry was disposed of:
// extracted in full, skipped by validation, or truncated by an entry-level
// failure. Only directory-level failures surface as a non-nil error.
//
// The bundle subpackage packages extraction output for offline analysis:
// a digest manifest, verification, and pushing to OCI registries.
package errhist
