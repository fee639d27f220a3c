package errhist

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewDirSink(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, sink.Dir())

	raw := makeDirectory("TOSHIBA", 2, []DirectoryEntry{{BufferID: 0x16, MaxAvailable: 100}})
	require.NoError(t, sink.WriteDirectory(raw))

	w, err := sink.CreateBuffer(0x16)
	require.NoError(t, err)
	_, err = w.Write([]byte("first chunk "))
	require.NoError(t, err)
	_, err = w.Write([]byte("second chunk"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	payload := []byte("first chunk second chunk")

	onDisk, err := os.ReadFile(filepath.Join(dir, DirectoryFileName))
	require.NoError(t, err)
	assert.Equal(t, raw, onDisk)

	onDisk, err = os.ReadFile(filepath.Join(dir, "22_err_history.dat"))
	require.NoError(t, err)
	assert.Equal(t, payload, onDisk)

	arts := sink.Artifacts()
	require.Len(t, arts, 2)

	assert.Equal(t, Artifact{
		File:      DirectoryFileName,
		Directory: true,
		Bytes:     uint64(len(raw)),
		Digest:    digest.FromBytes(raw),
	}, arts[0])

	assert.Equal(t, Artifact{
		File:        "22_err_history.dat",
		BufferID:    0x16,
		Bytes:       uint64(len(payload)),
		Digest:      digest.FromBytes(payload),
		Compression: CompressionNone,
	}, arts[1])
}

func TestDirSinkZstd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewDirSink(dir, WithCompression(CompressionZstd))
	require.NoError(t, err)

	// Two buffers back to back, since the encoder is reused across files.
	payloads := map[uint8][]byte{
		0x10: bytes.Repeat([]byte("abcdefgh"), 4096),
		0x23: []byte("short one"),
	}
	for _, id := range []uint8{0x10, 0x23} {
		w, err := sink.CreateBuffer(id)
		require.NoError(t, err)
		_, err = w.Write(payloads[id])
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	for id, want := range payloads {
		name := bufferFileName(id, CompressionZstd)
		compressed, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NotEqual(t, want, compressed)

		r, err := zstd.NewReader(bytes.NewReader(compressed))
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		r.Close()
		require.NoError(t, err)
		assert.Equal(t, want, got, "buffer 0x%02x must round-trip", id)
	}

	arts := sink.Artifacts()
	require.Len(t, arts, 2)
	for i, id := range []uint8{0x10, 0x23} {
		// Size and digest describe the raw payload, not the file on disk.
		assert.Equal(t, uint64(len(payloads[id])), arts[i].Bytes)
		assert.Equal(t, digest.FromBytes(payloads[id]), arts[i].Digest)
		assert.Equal(t, CompressionZstd, arts[i].Compression)
	}
}

func TestDirSinkCreateBufferTruncates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewDirSink(dir)
	require.NoError(t, err)

	w, err := sink.CreateBuffer(0x10)
	require.NoError(t, err)
	_, err = w.Write(bytes.Repeat([]byte{0xAA}, 1024))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = sink.CreateBuffer(0x10)
	require.NoError(t, err)
	_, err = w.Write([]byte("fresh"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	onDisk, err := os.ReadFile(filepath.Join(dir, "16_err_history.dat"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), onDisk)
}

func TestDirSinkCloseIdempotent(t *testing.T) {
	t.Parallel()

	sink, err := NewDirSink(t.TempDir())
	require.NoError(t, err)

	w, err := sink.CreateBuffer(0x10)
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.Len(t, sink.Artifacts(), 1)
}

func TestDirSinkArtifactsIsACopy(t *testing.T) {
	t.Parallel()

	sink, err := NewDirSink(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, sink.WriteDirectory([]byte{1, 2, 3}))

	arts := sink.Artifacts()
	arts[0].File = "mutated"
	assert.Equal(t, DirectoryFileName, sink.Artifacts()[0].File)
}

func TestDirSinkCreatesNestedDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out", "device0")
	_, err := NewDirSink(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDirSinkPermOptions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewDirSink(dir, WithFilePerm(0o600))
	require.NoError(t, err)

	require.NoError(t, sink.WriteDirectory([]byte("hdr")))
	info, err := os.Stat(filepath.Join(dir, DirectoryFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestBufferFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   uint8
		c    Compression
		want string
	}{
		{0x10, CompressionNone, "16_err_history.dat"},
		{0x10, CompressionZstd, "16_err_history.dat.zst"},
		{0xEF, CompressionNone, "239_err_history.dat"},
		{0x00, CompressionNone, "0_err_history.dat"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bufferFileName(tt.id, tt.c))
	}
}
