package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the optional TOML config file. File values fill in
// for flags that were not set on the command line.
type fileConfig struct {
	Out            string         `toml:"out"`
	Zstd           bool           `toml:"zstd"`
	RB16           bool           `toml:"rb16"`
	TimeoutSeconds int            `toml:"timeout_seconds"`
	Registry       registryConfig `toml:"registry"`

	meta toml.MetaData
}

type registryConfig struct {
	PlainHTTP bool   `toml:"plain_http"`
	Anonymous bool   `toml:"anonymous"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	UserAgent string `toml:"user_agent"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.meta = meta
	return cfg, nil
}

// isSet reports whether the config file defines the given key path.
func (c *fileConfig) isSet(key ...string) bool {
	return c.meta.IsDefined(key...)
}

func (c *fileConfig) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
