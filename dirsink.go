package errhist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
)

// DirSink persists extraction output into a directory: the raw directory
// response under DirectoryFileName and one file per buffer, named by its
// decimal buffer id. Files are written in place, so a terminated run leaves
// partially written artifacts behind; that is the intended behavior for
// diagnostic extraction.
//
// A DirSink is not safe for concurrent use; the extractor drives it
// sequentially.
type DirSink struct {
	dir         string
	dirPerm     os.FileMode
	filePerm    os.FileMode
	compression Compression
	enc         *zstd.Encoder
	artifacts   []Artifact
}

// DirSinkOption configures a DirSink.
type DirSinkOption func(*DirSink)

// WithDirPerm sets the permissions used when creating the sink directory.
func WithDirPerm(perm os.FileMode) DirSinkOption {
	return func(s *DirSink) { s.dirPerm = perm }
}

// WithFilePerm sets the permissions for created artifact files.
func WithFilePerm(perm os.FileMode) DirSinkOption {
	return func(s *DirSink) { s.filePerm = perm }
}

// WithCompression selects the storage encoding for buffer artifacts.
// Compressed artifacts gain a ".zst" suffix; the directory artifact is
// always stored raw. Artifact digests are of the raw payload either way.
func WithCompression(c Compression) DirSinkOption {
	return func(s *DirSink) { s.compression = c }
}

// NewDirSink creates the target directory if needed and returns a sink
// writing into it.
func NewDirSink(dir string, opts ...DirSinkOption) (*DirSink, error) {
	s := &DirSink{
		dir:      dir,
		dirPerm:  0o755,
		filePerm: 0o644,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, fmt.Errorf("create sink directory: %w", err)
	}

	if s.compression == CompressionZstd {
		enc, err := zstd.NewWriter(io.Discard,
			zstd.WithEncoderConcurrency(1),
			zstd.WithLowerEncoderMem(true),
		)
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		s.enc = enc
	}

	return s, nil
}

// Dir returns the sink's target directory.
func (s *DirSink) Dir() string { return s.dir }

// WriteDirectory stores the raw directory response under DirectoryFileName.
func (s *DirSink) WriteDirectory(raw []byte) error {
	path := filepath.Join(s.dir, DirectoryFileName)
	if err := os.WriteFile(path, raw, s.filePerm); err != nil {
		return err
	}
	s.artifacts = append(s.artifacts, Artifact{
		File:      DirectoryFileName,
		Directory: true,
		Bytes:     uint64(len(raw)),
		Digest:    digest.FromBytes(raw),
	})
	return nil
}

// CreateBuffer opens a fresh artifact for the given buffer id.
func (s *DirSink) CreateBuffer(id uint8) (BufferWriter, error) {
	name := bufferFileName(id, s.compression)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.filePerm)
	if err != nil {
		return nil, err
	}

	w := &bufferFile{
		sink:     s,
		f:        f,
		name:     name,
		id:       id,
		digester: digest.Canonical.Digester(),
	}
	if s.enc != nil {
		s.enc.Reset(f)
		w.z = s.enc
	}
	return w, nil
}

// Artifacts lists what has been written so far, in write order. The
// directory artifact comes first when present.
func (s *DirSink) Artifacts() []Artifact {
	return slices.Clone(s.artifacts)
}

// bufferFile streams one buffer's chunks to disk, hashing the raw payload
// on the way through.
type bufferFile struct {
	sink     *DirSink
	f        *os.File
	z        *zstd.Encoder
	name     string
	id       uint8
	digester digest.Digester
	n        uint64
	closed   bool
}

func (w *bufferFile) Write(p []byte) (int, error) {
	var (
		n   int
		err error
	)
	if w.z != nil {
		n, err = w.z.Write(p)
	} else {
		n, err = w.f.Write(p)
	}
	w.digester.Hash().Write(p[:n])
	w.n += uint64(n)
	return n, err
}

// Close flushes and records the artifact. It runs on both the success and
// the truncated-entry path, so the artifact list reflects every file left
// on disk.
func (w *bufferFile) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if w.z != nil {
		err = w.z.Close()
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}

	w.sink.artifacts = append(w.sink.artifacts, Artifact{
		File:        w.name,
		BufferID:    w.id,
		Bytes:       w.n,
		Digest:      w.digester.Digest(),
		Compression: w.sink.compression,
	})
	return err
}
