package bundle

import (
	"log/slog"

	"github.com/meigma/errhist/bundle/oras"
)

// Client provides registry operations for error-history bundles.
type Client struct {
	oci    OCIClient
	logger *slog.Logger

	// orasOpts are options passed through to the ORAS client when
	// no custom OCIClient is provided.
	orasOpts []oras.Option
}

// New creates a bundle registry client with the given options.
//
// If no OCIClient is provided via WithOCIClient, a default ORAS-based
// client is created using any pass-through options (WithPlainHTTP, etc.).
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	if c.oci == nil {
		c.oci = oras.New(c.orasOpts...)
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Option configures a Client.
type Option func(*Client)

// WithOCIClient sets a custom OCI client.
// If not set, a default ORAS-based client is created.
//
// When a custom OCIClient is provided, pass-through options like
// WithPlainHTTP and WithDockerConfig are ignored.
func WithOCIClient(oci OCIClient) Option {
	return func(c *Client) {
		c.oci = oci
	}
}

// WithLogger sets the logger for diagnostic output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithPlainHTTP enables plain HTTP (no TLS) for registries.
// This is passed through to the default ORAS client.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithPlainHTTP(enabled))
	}
}

// WithDockerConfig enables reading credentials from ~/.docker/config.json.
// This is passed through to the default ORAS client.
func WithDockerConfig() Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithDockerConfig())
	}
}

// WithStaticCredentials sets username/password credentials for a registry.
// This is passed through to the default ORAS client.
func WithStaticCredentials(registry, username, password string) Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithStaticCredentials(registry, username, password))
	}
}

// WithAnonymous disables all authentication.
// This is passed through to the default ORAS client.
func WithAnonymous() Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithAnonymous())
	}
}

// WithUserAgent sets the User-Agent header for requests.
// This is passed through to the default ORAS client.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.orasOpts = append(c.orasOpts, oras.WithUserAgent(ua))
	}
}
