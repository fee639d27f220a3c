package bundle

import (
	"context"
	"fmt"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// RemoteManifest wraps the OCI manifest of a pushed bundle.
type RemoteManifest struct {
	raw     ocispec.Manifest
	digest  string
	created time.Time
}

// Digest returns the manifest digest.
func (m *RemoteManifest) Digest() string {
	return m.digest
}

// Annotations returns the manifest annotations.
func (m *RemoteManifest) Annotations() map[string]string {
	return m.raw.Annotations
}

// Created returns the creation timestamp from annotations.
//
// Returns zero time if the annotation is not present or cannot be parsed.
func (m *RemoteManifest) Created() time.Time {
	return m.created
}

// Raw returns the underlying OCI manifest.
func (m *RemoteManifest) Raw() ocispec.Manifest {
	return m.raw
}

// ManifestLayer returns the descriptor of the manifest.json layer.
func (m *RemoteManifest) ManifestLayer() ocispec.Descriptor {
	for _, layer := range m.raw.Layers {
		if layer.MediaType == MediaTypeManifest {
			return layer
		}
	}
	return ocispec.Descriptor{}
}

// ArtifactLayers returns the directory and buffer layers in push order.
func (m *RemoteManifest) ArtifactLayers() []ocispec.Descriptor {
	var out []ocispec.Descriptor
	for _, layer := range m.raw.Layers {
		switch layer.MediaType {
		case MediaTypeDirectory, MediaTypeBuffer, MediaTypeBufferZstd:
			out = append(out, layer)
		}
	}
	return out
}

// Inspect retrieves bundle metadata from a registry without downloading
// layer data.
//
// The ref must include a tag or digest.
func (c *Client) Inspect(ctx context.Context, ref string) (*RemoteManifest, error) {
	parsedRef, err := parseClientRef(ref)
	if err != nil {
		return nil, err
	}
	if parsedRef.reference == "" {
		return nil, fmt.Errorf("%w: reference must include a tag or digest", ErrInvalidReference)
	}

	// Step 1: Resolve tags to a digest
	dgst := parsedRef.reference
	if !isDigest(dgst) {
		c.log().Debug("resolving reference", "ref", ref, "type", "tag")
		desc, resolveErr := c.oci.Resolve(ctx, ref, dgst)
		if resolveErr != nil {
			return nil, mapOCIError(resolveErr)
		}
		dgst = desc.Digest.String()
	}

	// Step 2: Fetch and validate the manifest
	desc, err := descriptorFromDigest(dgst)
	if err != nil {
		return nil, err
	}
	manifest, err := c.oci.FetchManifest(ctx, ref, &desc)
	if err != nil {
		return nil, mapOCIError(err)
	}

	return parseRemoteManifest(&manifest, dgst)
}

// parseRemoteManifest validates an OCI manifest as a bundle manifest.
func parseRemoteManifest(manifest *ocispec.Manifest, dgst string) (*RemoteManifest, error) {
	if manifest.MediaType != ocispec.MediaTypeImageManifest {
		return nil, fmt.Errorf("%w: unexpected manifest media type %q", ErrInvalidManifest, manifest.MediaType)
	}
	if manifest.ArtifactType != ArtifactType {
		return nil, fmt.Errorf("%w: unexpected artifact type %q", ErrInvalidManifest, manifest.ArtifactType)
	}

	var foundManifest bool
	for _, layer := range manifest.Layers {
		if layer.MediaType == MediaTypeManifest {
			if foundManifest {
				return nil, fmt.Errorf("%w: multiple manifest layers", ErrInvalidManifest)
			}
			foundManifest = true
		}
	}
	if !foundManifest {
		return nil, fmt.Errorf("%w: no manifest layer", ErrInvalidManifest)
	}

	var created time.Time
	if ts, ok := manifest.Annotations[ocispec.AnnotationCreated]; ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			created = t
		}
	}

	return &RemoteManifest{
		raw:     *manifest,
		digest:  dgst,
		created: created,
	}, nil
}
