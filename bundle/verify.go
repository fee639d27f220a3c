package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// VerifyOption configures a Verify operation.
type VerifyOption func(*verifyConfig)

type verifyConfig struct {
	concurrency int
}

// WithVerifyConcurrency sets the number of artifacts verified in parallel.
// Values < 1 force serial verification.
func WithVerifyConcurrency(n int) VerifyOption {
	return func(cfg *verifyConfig) {
		cfg.concurrency = n
	}
}

// Verify re-digests every artifact the bundle manifest names and compares
// against the recorded digests and sizes. Compressed artifacts are
// decompressed on the fly, so the comparison always covers the raw payload.
//
// It returns the loaded manifest on success and the first failure
// otherwise: ErrMissingArtifact, ErrSizeMismatch, or ErrDigestMismatch,
// each naming the offending file.
func Verify(ctx context.Context, dir string, opts ...VerifyOption) (*Manifest, error) {
	cfg := verifyConfig{concurrency: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}

	m, err := Load(dir)
	if err != nil {
		return nil, err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(cfg.concurrency, 1))
	for _, art := range m.Artifacts {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return verifyArtifact(dir, art)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

func verifyArtifact(dir string, art Artifact) error {
	f, err := os.Open(filepath.Join(dir, art.File))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingArtifact, art.File)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if art.Compressed() {
		dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return fmt.Errorf("%s: %w", art.File, err)
		}
		defer dec.Close()
		r = dec
	}

	digester := digest.Canonical.Digester()
	n, err := io.Copy(digester.Hash(), r)
	if err != nil {
		return fmt.Errorf("%s: %w", art.File, err)
	}

	if uint64(n) != art.Bytes {
		return fmt.Errorf("%w: %s: %d bytes, recorded %d", ErrSizeMismatch, art.File, n, art.Bytes)
	}
	if got := digester.Digest(); got != art.Digest {
		return fmt.Errorf("%w: %s: %s, recorded %s", ErrDigestMismatch, art.File, got, art.Digest)
	}
	return nil
}
