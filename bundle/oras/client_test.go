package oras

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/errcode"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates client with defaults", func(t *testing.T) {
		t.Parallel()
		c := New()
		require.NotNil(t, c)
		assert.Equal(t, "errhist-client/1.0", c.userAgent)
		assert.False(t, c.plainHTTP)
		assert.Nil(t, c.credStore)
		require.NotNil(t, c.authClient)
		assert.Equal(t, "errhist-client/1.0", c.authClient.Header.Get("User-Agent"))
	})

	t.Run("applies WithPlainHTTP option", func(t *testing.T) {
		t.Parallel()
		c := New(WithPlainHTTP(true))
		assert.True(t, c.plainHTTP)
	})

	t.Run("applies WithUserAgent option", func(t *testing.T) {
		t.Parallel()
		c := New(WithUserAgent("custom-agent/2.0"))
		assert.Equal(t, "custom-agent/2.0", c.userAgent)
		assert.Equal(t, "custom-agent/2.0", c.authClient.Header.Get("User-Agent"))
	})

	t.Run("applies WithStaticCredentials option", func(t *testing.T) {
		t.Parallel()
		c := New(WithStaticCredentials("example.com", "user", "pass"))
		require.NotNil(t, c.credStore)

		cred, err := c.credStore.Get(context.Background(), "example.com")
		require.NoError(t, err)
		assert.Equal(t, "user", cred.Username)
	})

	t.Run("applies WithStaticToken option", func(t *testing.T) {
		t.Parallel()
		c := New(WithStaticToken("example.com", "my-token"))
		require.NotNil(t, c.credStore)

		cred, err := c.credStore.Get(context.Background(), "example.com")
		require.NoError(t, err)
		assert.Equal(t, "my-token", cred.AccessToken)
	})

	t.Run("applies WithAnonymous option", func(t *testing.T) {
		t.Parallel()
		c := New(WithAnonymous())
		assert.True(t, c.anonymous)
	})

	t.Run("WithAnonymous skips credential store", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{
			inner: StaticCredentials("registry.example.com", "user", "pass"),
		}
		c := New(
			WithCredentialStore(store),
			WithAnonymous(),
		)

		cred, err := c.authClient.Credential(context.Background(), "registry.example.com")
		require.NoError(t, err)
		assert.Equal(t, auth.EmptyCredential, cred)
		assert.Equal(t, int32(0), store.getCount.Load())
	})

	t.Run("credential store feeds the auth client", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{
			inner: StaticCredentials("registry.example.com", "user", "pass"),
		}
		c := New(WithCredentialStore(store))

		cred, err := c.authClient.Credential(context.Background(), "registry.example.com")
		require.NoError(t, err)
		assert.Equal(t, "user", cred.Username)
		assert.Equal(t, int32(1), store.getCount.Load())
	})
}

func TestRepository(t *testing.T) {
	t.Parallel()

	t.Run("configures plain HTTP and auth client", func(t *testing.T) {
		t.Parallel()
		c := New(WithPlainHTTP(true))

		repo, err := c.repository("localhost:5000/myrepo:tag")
		require.NoError(t, err)
		assert.True(t, repo.PlainHTTP)
		assert.Same(t, c.authClient, repo.Client)
	})

	t.Run("invalid reference", func(t *testing.T) {
		t.Parallel()
		c := New()

		_, err := c.repository(":::invalid")
		assert.ErrorIs(t, err, ErrInvalidReference)
	})
}

func TestValidateDescriptor(t *testing.T) {
	t.Parallel()

	validDigest := digest.FromString("test content")

	tests := []struct {
		name        string
		desc        *ocispec.Descriptor
		expectError bool
	}{
		{
			name:        "nil descriptor",
			desc:        nil,
			expectError: true,
		},
		{
			name: "negative size",
			desc: &ocispec.Descriptor{
				Digest: validDigest,
				Size:   -1,
			},
			expectError: true,
		},
		{
			name: "empty digest",
			desc: &ocispec.Descriptor{
				Size: 100,
			},
			expectError: true,
		},
		{
			name: "invalid digest format",
			desc: &ocispec.Descriptor{
				Digest: "not-a-valid-digest",
				Size:   100,
			},
			expectError: true,
		},
		{
			name: "valid descriptor",
			desc: &ocispec.Descriptor{
				Digest: validDigest,
				Size:   100,
			},
		},
		{
			name: "valid descriptor with zero size",
			desc: &ocispec.Descriptor{
				Digest: validDigest,
				Size:   0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateDescriptor(tt.desc)

			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidDescriptor)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPushBlob_InvalidInput(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()
	desc := &ocispec.Descriptor{
		Digest: digest.FromString("content"),
		Size:   7,
	}

	t.Run("nil descriptor", func(t *testing.T) {
		t.Parallel()
		err := c.PushBlob(ctx, "registry.example.com/repo:tag", nil, bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("nil reader", func(t *testing.T) {
		t.Parallel()
		err := c.PushBlob(ctx, "registry.example.com/repo:tag", desc, nil)
		assert.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("invalid reference", func(t *testing.T) {
		t.Parallel()
		err := c.PushBlob(ctx, ":::invalid", desc, bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrInvalidReference)
	})
}

func TestPushManifest_InvalidInput(t *testing.T) {
	t.Parallel()

	c := New()

	t.Run("nil manifest", func(t *testing.T) {
		t.Parallel()
		_, err := c.PushManifest(context.Background(), "registry.example.com/repo:tag", "tag", nil)
		assert.ErrorIs(t, err, ErrManifestInvalid)
	})

	t.Run("invalid reference", func(t *testing.T) {
		t.Parallel()
		_, err := c.PushManifest(context.Background(), ":::invalid", "tag", &ocispec.Manifest{})
		assert.ErrorIs(t, err, ErrInvalidReference)
	})
}

func TestFetchManifest_InvalidInput(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := context.Background()

	t.Run("nil descriptor", func(t *testing.T) {
		t.Parallel()
		_, err := c.FetchManifest(ctx, "registry.example.com/repo:tag", nil)
		assert.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("unsupported media type", func(t *testing.T) {
		t.Parallel()
		desc := &ocispec.Descriptor{
			MediaType: ocispec.MediaTypeImageIndex,
			Digest:    digest.FromString("index"),
			Size:      100,
		}
		_, err := c.FetchManifest(ctx, "registry.example.com/repo:tag", desc)
		assert.ErrorIs(t, err, ErrManifestInvalid)
	})
}

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, mapError(nil))
	})

	t.Run("errdef.ErrNotFound maps to ErrNotFound", func(t *testing.T) {
		t.Parallel()
		err := mapError(errdef.ErrNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wrapped errdef.ErrNotFound maps to ErrNotFound", func(t *testing.T) {
		t.Parallel()
		wrapped := fmt.Errorf("wrapped: %w", errdef.ErrNotFound)
		err := mapError(wrapped)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("errcode.ErrorResponse 404 maps to ErrNotFound", func(t *testing.T) {
		t.Parallel()
		resp := &errcode.ErrorResponse{StatusCode: http.StatusNotFound}
		err := mapError(resp)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("errcode.ErrorResponse 401 maps to ErrUnauthorized", func(t *testing.T) {
		t.Parallel()
		resp := &errcode.ErrorResponse{StatusCode: http.StatusUnauthorized}
		err := mapError(resp)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("errcode.ErrorResponse 403 maps to ErrForbidden", func(t *testing.T) {
		t.Parallel()
		resp := &errcode.ErrorResponse{StatusCode: http.StatusForbidden}
		err := mapError(resp)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown error passes through", func(t *testing.T) {
		t.Parallel()
		originalErr := errors.New("some random error")
		err := mapError(originalErr)
		assert.Equal(t, originalErr, err)
	})
}

// countingStore wraps a credential store to count Get calls.
type countingStore struct {
	inner interface {
		Get(context.Context, string) (auth.Credential, error)
	}
	getCount atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	s.getCount.Add(1)
	return s.inner.Get(ctx, serverAddress)
}

func (s *countingStore) Put(_ context.Context, _ string, _ auth.Credential) error {
	return nil
}

func (s *countingStore) Delete(_ context.Context, _ string) error {
	return nil
}
