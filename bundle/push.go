package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// PushOption configures a Push operation.
type PushOption func(*pushConfig)

type pushConfig struct {
	tags        []string
	annotations map[string]string
}

// WithTags applies additional tags to the pushed manifest.
//
// The primary tag from the ref is always applied. These tags are applied
// after the initial push succeeds.
func WithTags(tags ...string) PushOption {
	return func(cfg *pushConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// WithAnnotations sets custom annotations on the manifest.
//
// Standard annotations like org.opencontainers.image.created are set
// automatically and can be overridden.
func WithAnnotations(annotations map[string]string) PushOption {
	return func(cfg *pushConfig) {
		if cfg.annotations == nil {
			cfg.annotations = make(map[string]string)
		}
		for k, v := range annotations {
			cfg.annotations[k] = v
		}
	}
}

// Push pushes the bundle in dir to an OCI registry.
//
// The bundle is pushed as one layer per artifact file plus the manifest.json
// layer, linked by an OCI manifest carrying ArtifactType. The ref must
// include a tag (e.g., "registry.com/repo:v1.0.0").
//
// Uncompressed artifacts are re-hashed on the way out; a file whose content
// no longer matches the bundle manifest fails with ErrDigestMismatch rather
// than pushing a corrupted bundle.
func (c *Client) Push(ctx context.Context, ref, dir string, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	parsedRef, err := parseClientRef(ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	tag := parsedRef.reference
	if tag == "" || isDigest(tag) {
		return ocispec.Descriptor{}, fmt.Errorf("%w: reference must include a tag", ErrInvalidReference)
	}

	m, err := Load(dir)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	// Step 1: Push empty config blob (required by OCI spec)
	configDesc, err := c.pushEmptyConfig(ctx, ref)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push config: %w", err)
	}

	// Step 2: Push the manifest.json layer from its exact file bytes, so
	// the layer digest matches the file on disk.
	manifestLayer, err := c.pushManifestLayer(ctx, ref, dir)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest layer: %w", err)
	}

	// Step 3: Push one layer per artifact
	layers := make([]ocispec.Descriptor, 0, len(m.Artifacts)+1)
	layers = append(layers, manifestLayer)
	for _, art := range m.Artifacts {
		desc, pushErr := c.pushArtifact(ctx, ref, dir, art)
		if pushErr != nil {
			return ocispec.Descriptor{}, fmt.Errorf("push %s: %w", art.File, pushErr)
		}
		layers = append(layers, desc)
	}

	// Step 4: Build and push the OCI manifest
	manifest := buildManifest(configDesc, layers, cfg.annotations)
	manifestDesc, err := c.oci.PushManifest(ctx, ref, tag, &manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest: %w", mapOCIError(err))
	}

	// Step 5: Apply additional tags
	for _, additionalTag := range cfg.tags {
		if tagErr := c.oci.Tag(ctx, ref, &manifestDesc, additionalTag); tagErr != nil {
			return ocispec.Descriptor{}, fmt.Errorf("tag %q: %w", additionalTag, mapOCIError(tagErr))
		}
	}

	c.log().Info("bundle pushed",
		"ref", ref,
		"digest", manifestDesc.Digest.String(),
		"layers", len(layers))
	return manifestDesc, nil
}

// pushEmptyConfig pushes the empty JSON config blob required by OCI manifests.
func (c *Client) pushEmptyConfig(ctx context.Context, ref string) (ocispec.Descriptor, error) {
	config := []byte("{}")
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeEmptyJSON,
		Digest:    digest.FromBytes(config),
		Size:      int64(len(config)),
	}
	if err := c.oci.PushBlob(ctx, ref, &desc, bytes.NewReader(config)); err != nil {
		return ocispec.Descriptor{}, mapOCIError(err)
	}
	return desc, nil
}

// pushManifestLayer pushes dir's manifest.json as a layer.
func (c *Client) pushManifestLayer(ctx context.Context, ref, dir string) (ocispec.Descriptor, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	desc := ocispec.Descriptor{
		MediaType: MediaTypeManifest,
		Digest:    digest.FromBytes(data),
		Size:      int64(len(data)),
		Annotations: map[string]string{
			ocispec.AnnotationTitle: ManifestFileName,
		},
	}
	if err := c.oci.PushBlob(ctx, ref, &desc, bytes.NewReader(data)); err != nil {
		return ocispec.Descriptor{}, mapOCIError(err)
	}
	return desc, nil
}

// pushArtifact hashes one artifact file and pushes it as a layer.
func (c *Client) pushArtifact(ctx context.Context, ref, dir string, art Artifact) (ocispec.Descriptor, error) {
	path := filepath.Join(dir, art.File)
	desc, err := fileDescriptor(path, art)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	defer f.Close()

	if err := c.oci.PushBlob(ctx, ref, &desc, f); err != nil {
		return ocispec.Descriptor{}, mapOCIError(err)
	}
	return desc, nil
}

// fileDescriptor hashes the file on disk and builds its layer descriptor.
// For uncompressed artifacts the file hash must equal the digest the bundle
// manifest records; a mismatch means the bundle changed after extraction.
func fileDescriptor(path string, art Artifact) (ocispec.Descriptor, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %s", ErrMissingArtifact, art.File)
	}
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	defer f.Close()

	dgst, err := digest.FromReader(f)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	info, err := f.Stat()
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	if !art.Compressed() && dgst != art.Digest {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %s", ErrDigestMismatch, art.File)
	}

	desc := ocispec.Descriptor{
		MediaType: layerMediaType(art),
		Digest:    dgst,
		Size:      info.Size(),
		Annotations: map[string]string{
			ocispec.AnnotationTitle: art.File,
		},
	}
	if !art.Directory {
		desc.Annotations[AnnotationBufferID] = strconv.Itoa(int(art.BufferID))
	}
	if art.Compressed() {
		desc.Annotations[AnnotationRawDigest] = art.Digest.String()
	}
	return desc, nil
}

// layerMediaType selects the layer media type for an artifact.
func layerMediaType(art Artifact) string {
	switch {
	case art.Directory:
		return MediaTypeDirectory
	case art.Compressed():
		return MediaTypeBufferZstd
	default:
		return MediaTypeBuffer
	}
}

// buildManifest creates an OCI manifest for a bundle.
func buildManifest(configDesc ocispec.Descriptor, layers []ocispec.Descriptor, customAnnotations map[string]string) ocispec.Manifest {
	annotations := make(map[string]string)
	for k, v := range customAnnotations {
		annotations[k] = v
	}
	if _, ok := annotations[ocispec.AnnotationCreated]; !ok {
		annotations[ocispec.AnnotationCreated] = time.Now().UTC().Format(time.RFC3339)
	}

	return ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       configDesc,
		Layers:       layers,
		Annotations:  annotations,
	}
}
