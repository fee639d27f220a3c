package errhist

import (
	"io"
	"strconv"

	"github.com/opencontainers/go-digest"
)

// DirectoryFileName is the fixed name of the raw directory artifact.
const DirectoryFileName = "err_directory.dat"

// Sink persists extraction output. The extractor writes the raw directory
// response once, then one artifact per valid entry, with chunks arriving in
// strictly increasing offset order.
type Sink interface {
	// WriteDirectory stores the raw directory response. A failure here is
	// fatal to the whole extraction.
	WriteDirectory(raw []byte) error

	// CreateBuffer opens a fresh artifact for the given buffer id,
	// truncating any previous content. A failure here is scoped to the
	// entry being extracted.
	CreateBuffer(id uint8) (BufferWriter, error)
}

// BufferWriter receives the chunks of one buffer in offset order. Close is
// called exactly once, including after a mid-extraction failure, in which
// case the artifact keeps the prefix written so far.
type BufferWriter interface {
	io.Writer
	Close() error
}

// Compression identifies the storage encoding of buffer artifacts.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Artifact describes one file produced by a DirSink.
type Artifact struct {
	// File is the base name within the sink directory.
	File string

	// BufferID is the buffer the artifact holds. Zero for the directory
	// artifact; see Directory.
	BufferID uint8

	// Directory marks the raw directory artifact.
	Directory bool

	// Bytes counts the raw payload bytes, before any compression.
	Bytes uint64

	// Digest is the canonical digest of the raw payload.
	Digest digest.Digest

	// Compression is the storage encoding of the file on disk.
	Compression Compression
}

// bufferFileName returns the artifact name for a buffer id. Ids are decimal
// to match the layout analysis tooling expects.
func bufferFileName(id uint8, c Compression) string {
	name := strconv.Itoa(int(id)) + "_err_history.dat"
	if c == CompressionZstd {
		name += ".zst"
	}
	return name
}
