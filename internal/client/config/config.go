package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/megavault/internal/flagx"
)

// ConfigFileEnv names the environment variable consulted when no -c/-config flag is given.
const ConfigFileEnv = "MEGAVAULT_CLI_CONFIG"

const (
	// S3 rejects non-final parts below 5 MiB.
	minPartSize = 5 << 20
	mib         = 1 << 20
)

// Config holds runtime settings for the MegaVault CLI.
//
// Fields:
//   - ServerURL: base URL of the HTTP API.
//   - PartSize: bytes per multipart upload part.
//   - Concurrency: parts uploaded in parallel.
//   - RequestTimeout: per-request limit of the HTTP client.
type Config struct {
	ServerURL      string
	PartSize       int64
	Concurrency    int
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
	c.PartSize = 8 * mib
	c.Concurrency = 4
	c.RequestTimeout = 5 * time.Minute
}

// Validate reports settings the CLI cannot work with.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid server url %q", c.ServerURL))
	}
	if c.PartSize < minPartSize {
		errs = append(errs, errors.New("part size must be at least 5 MiB"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}

	return errors.Join(errs...)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags. args is normally os.Args[1:].
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigFile(args, ConfigFileEnv); path != "" {
		if err := parseJson(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
