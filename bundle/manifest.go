package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/errhist"
)

// ManifestFileName is the fixed name of the bundle manifest within an
// extraction directory.
const ManifestFileName = "manifest.json"

// Manifest describes one extraction run: the device identity from the
// directory header and every artifact file by raw-payload digest.
type Manifest struct {
	Vendor    string     `json:"vendor"`
	Version   uint8      `json:"version"`
	Device    string     `json:"device,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Artifacts []Artifact `json:"artifacts"`
}

// Artifact describes one file of a bundle.
//
// Digest and Bytes always cover the raw payload. For compressed artifacts
// the file on disk is smaller and hashes differently; verification
// decompresses before comparing.
type Artifact struct {
	File        string        `json:"file"`
	BufferID    uint8         `json:"buffer_id,omitempty"`
	Directory   bool          `json:"directory,omitempty"`
	Bytes       uint64        `json:"bytes"`
	Digest      digest.Digest `json:"digest"`
	Compression string        `json:"compression,omitempty"`
	Truncated   bool          `json:"truncated,omitempty"`
}

// Compressed reports whether the artifact is stored zstd-compressed.
func (a Artifact) Compressed() bool { return a.Compression == "zstd" }

// Build assembles the manifest for one extraction run from its report and
// the artifacts the sink produced. Buffers whose extraction failed partway
// keep their artifact and are marked truncated.
func Build(rep *errhist.Report, artifacts []errhist.Artifact, device string, created time.Time) *Manifest {
	truncated := make(map[uint8]bool, len(rep.Entries))
	for _, ent := range rep.Entries {
		if ent.Status == errhist.EntryFailed {
			truncated[ent.BufferID] = true
		}
	}

	m := &Manifest{
		Vendor:    rep.Directory.Header.Vendor(),
		Version:   rep.Directory.Header.Version,
		Device:    device,
		CreatedAt: created.UTC(),
		Artifacts: make([]Artifact, 0, len(artifacts)),
	}
	for _, a := range artifacts {
		art := Artifact{
			File:      a.File,
			BufferID:  a.BufferID,
			Directory: a.Directory,
			Bytes:     a.Bytes,
			Digest:    a.Digest,
		}
		if a.Compression == errhist.CompressionZstd {
			art.Compression = a.Compression.String()
		}
		if !a.Directory {
			art.Truncated = truncated[a.BufferID]
		}
		m.Artifacts = append(m.Artifacts, art)
	}
	return m
}

// Write stores the manifest as ManifestFileName inside dir.
func (m *Manifest) Write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644)
}

// Load reads and validates the manifest inside dir. File-system errors are
// returned as is; malformed content fails with an error wrapping
// ErrInvalidManifest.
func Load(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// validate rejects manifests whose artifact names could escape the bundle
// directory or whose digests are unusable.
func (m *Manifest) validate() error {
	if len(m.Artifacts) == 0 {
		return fmt.Errorf("%w: no artifacts", ErrInvalidManifest)
	}

	seen := make(map[string]struct{}, len(m.Artifacts))
	for _, a := range m.Artifacts {
		if a.File == "" || a.File == "." || a.File == ".." || a.File != filepath.Base(a.File) {
			return fmt.Errorf("%w: artifact name %q", ErrInvalidManifest, a.File)
		}
		if _, dup := seen[a.File]; dup {
			return fmt.Errorf("%w: duplicate artifact %q", ErrInvalidManifest, a.File)
		}
		seen[a.File] = struct{}{}

		if err := a.Digest.Validate(); err != nil {
			return fmt.Errorf("%w: artifact %q: invalid digest", ErrInvalidManifest, a.File)
		}
		switch a.Compression {
		case "", "zstd":
		default:
			return fmt.Errorf("%w: artifact %q: unknown compression %q", ErrInvalidManifest, a.File, a.Compression)
		}
	}
	return nil
}
