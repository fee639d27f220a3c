//go:build integration

package integration

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/errhist"
	"github.com/meigma/errhist/bundle"
)

// --- Registry Container Setup ---

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container if needed.
// The container is shared across all tests for performance.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	registryOnce.Do(func() {
		ctx := context.Background()
		registryAddr, registryErr = startRegistryContainer(ctx)
	})

	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}

	return registryAddr
}

// startRegistryContainer starts a registry:2 container and returns the host:port address.
func startRegistryContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "registry:2",
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor:   wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(isOKStatus),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	// Note: Container cleanup is handled by testcontainers Reaper.

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}

	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}

// --- Test Client Factory ---

// newTestClient creates a bundle client configured for the local test registry.
func newTestClient(tb testing.TB, opts ...bundle.Option) *bundle.Client {
	tb.Helper()

	// Always use plain HTTP for the local registry
	allOpts := append([]bundle.Option{bundle.WithPlainHTTP(true)}, opts...)
	return bundle.New(allOpts...)
}

// --- Test Reference Helpers ---

// testRef generates a unique reference for a test to avoid collisions.
func testRef(registryAddr, testName string) string {
	return fmt.Sprintf("%s/test/%s:latest", registryAddr, testName)
}

// testRefWithTag generates a reference with a specific tag.
func testRefWithTag(registryAddr, testName, tag string) string {
	return fmt.Sprintf("%s/test/%s:%s", registryAddr, testName, tag)
}

// --- Fake Device ---

// fakeDevice implements errhist.Transport against in-memory buffer
// content, so a full extraction runs without SG hardware.
type fakeDevice struct {
	directory []byte
	buffers   map[uint8][]byte
}

// newFakeDevice builds a device exposing the given buffers through a
// synthesized error-history directory.
func newFakeDevice(vendor string, buffers map[uint8][]byte) *fakeDevice {
	raw := make([]byte, errhist.DirectoryResponseLen)
	copy(raw[0:8], vendor)
	raw[8] = 1

	// Entries start at byte 32, after the fixed header region.
	off := 32
	var n int
	for id, content := range buffers {
		raw[off] = id
		binary.BigEndian.PutUint32(raw[off+4:off+8], uint32(len(content)))
		off += 8
		n++
	}
	binary.BigEndian.PutUint16(raw[30:32], uint16(n*8))

	return &fakeDevice{directory: raw, buffers: buffers}
}

func (d *fakeDevice) Execute(cdb, data []byte, _ time.Duration) errhist.Completion {
	// READ BUFFER(10): buffer id at byte 2, 24-bit offset at bytes 3-5.
	id := cdb[2]
	offset := int(cdb[3])<<16 | int(cdb[4])<<8 | int(cdb[5])

	src := d.directory
	if id != errhist.DirectoryBufferID {
		src = d.buffers[id]
	}

	var n int
	if offset < len(src) {
		n = copy(data, src[offset:])
	}
	return errhist.Completion{Status: errhist.CompletionGood, Residual: len(data) - n}
}

// --- Bundle Fixtures ---

// patternContent creates deterministic buffer content of the given size.
func patternContent(id uint8, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(int(id) + i)
	}
	return data
}

// smallBuffers is a pair of sub-chunk error buffers.
var smallBuffers = map[uint8][]byte{
	0x10: patternContent(0x10, 4096),
	0x20: patternContent(0x20, 513),
}

// chunkedBuffers forces multiple chunk reads for one buffer.
var chunkedBuffers = map[uint8][]byte{
	0x10: patternContent(0x10, errhist.ChunkSize+37856),
}

// makeBundle runs a full extraction against a fake device into a fresh
// temp directory and writes the bundle manifest, returning the directory.
func makeBundle(tb testing.TB, buffers map[uint8][]byte, sinkOpts ...errhist.DirSinkOption) string {
	tb.Helper()

	dir := tb.TempDir()
	sink, err := errhist.NewDirSink(dir, sinkOpts...)
	require.NoError(tb, err, "create sink")

	dev := newFakeDevice("TESTDEV", buffers)
	rep, err := errhist.Extract(context.Background(), dev, sink)
	require.NoError(tb, err, "extract")
	require.Equal(tb, len(buffers), rep.Extracted(), "extracted buffer count")

	m := bundle.Build(rep, sink.Artifacts(), "/dev/sg-test", time.Now())
	require.NoError(tb, m.Write(dir), "write manifest")
	return dir
}
