package bundle

// Media types for error-history bundles in OCI registries.
const (
	// ArtifactType identifies bundles as an OCI 1.1 artifact type.
	ArtifactType = "application/vnd.meigma.errhist.v1"

	// MediaTypeManifest is the media type for the manifest.json layer.
	MediaTypeManifest = "application/vnd.meigma.errhist.manifest.v1+json"

	// MediaTypeDirectory is the media type for the raw directory response.
	MediaTypeDirectory = "application/vnd.meigma.errhist.directory.v1"

	// MediaTypeBuffer is the media type for an uncompressed buffer layer.
	MediaTypeBuffer = "application/vnd.meigma.errhist.buffer.v1"

	// MediaTypeBufferZstd is the media type for a zstd-compressed buffer layer.
	MediaTypeBufferZstd = "application/vnd.meigma.errhist.buffer.v1+zstd"
)

// Layer annotations.
const (
	// AnnotationBufferID carries the decimal buffer id of a buffer layer.
	AnnotationBufferID = "vnd.meigma.errhist.buffer.id"

	// AnnotationRawDigest carries the raw-payload digest of a compressed
	// layer, whose OCI digest covers the compressed bytes.
	AnnotationRawDigest = "vnd.meigma.errhist.raw.digest"
)
