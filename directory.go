package errhist

import (
	"bytes"
	"encoding/binary"
)

// Error-history directory layout constants (UFS 3.0, SPC-4).
const (
	// DirectoryBufferID is the buffer id that holds the directory itself.
	DirectoryBufferID = 0x00

	// DirectoryResponseLen is the fixed size of one directory read: a
	// 32-byte header followed by up to 257 eight-byte entries.
	DirectoryResponseLen = 2088

	// MinBufferID and MaxBufferID bound the extractable buffer id range.
	// Ids below the range are directory/reserved; ids above are vendor
	// control buffers.
	MinBufferID = 0x10
	MaxBufferID = 0xEF

	// MaxBufferLength is the largest byte count a directory entry may
	// advertise, fixed by the 24-bit transfer-length field.
	MaxBufferLength = 0xFFFFFF

	directoryHeaderLen = 32
	directoryEntryLen  = 8
)

// DirectoryHeader is the fixed 32-byte region leading the directory
// response.
type DirectoryHeader struct {
	VendorID [8]byte
	Version  uint8

	// Length is the byte count of the entry table that follows the header,
	// not including the header itself.
	Length uint16
}

// Vendor returns the vendor identifier with trailing NULs and spaces
// removed.
func (h DirectoryHeader) Vendor() string {
	return string(bytes.TrimRight(h.VendorID[:], "\x00 "))
}

// DirectoryEntry describes one error-history buffer advertised by the
// device.
type DirectoryEntry struct {
	BufferID     uint8
	MaxAvailable uint32
}

// Extractable reports whether the entry may be read: the buffer id must be
// inside [MinBufferID, MaxBufferID] and the advertised length inside
// (0, MaxBufferLength]. Entries failing the checks are inert; they are
// never read and never produce output.
func (e DirectoryEntry) Extractable() bool {
	return e.BufferID >= MinBufferID && e.BufferID <= MaxBufferID &&
		e.MaxAvailable > 0 && e.MaxAvailable <= MaxBufferLength
}

// Directory is the decoded error-history directory.
type Directory struct {
	Header  DirectoryHeader
	Entries []DirectoryEntry
}

// DecodeDirectory parses the raw bytes of one directory read.
//
// Decoding never fails: input shorter than the header region yields an
// empty directory, and the entry count is clamped to the bytes actually
// present. Garbage bytes simply decode into entries that fail the
// Extractable checks. Trailing bytes after the last whole entry are never
// interpreted.
func DecodeDirectory(raw []byte) Directory {
	var d Directory
	if len(raw) < directoryHeaderLen {
		return d
	}

	copy(d.Header.VendorID[:], raw[0:8])
	d.Header.Version = raw[8]
	d.Header.Length = binary.BigEndian.Uint16(raw[directoryHeaderLen-2 : directoryHeaderLen])

	n := int(d.Header.Length) / directoryEntryLen
	n = min(n, (len(raw)-directoryHeaderLen)/directoryEntryLen)
	if n <= 0 {
		return d
	}

	d.Entries = make([]DirectoryEntry, 0, n)
	for i := range n {
		off := directoryHeaderLen + i*directoryEntryLen
		d.Entries = append(d.Entries, DirectoryEntry{
			BufferID:     raw[off],
			MaxAvailable: binary.BigEndian.Uint32(raw[off+4 : off+8]),
		})
	}
	return d
}
