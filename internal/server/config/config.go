// Package config handles configuration for the MegaVault server: defaults,
// a JSON overlay, environment variables and command-line flags, applied in
// that order. The resulting Config is built once at start and passed to every
// component explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/megavault/internal/flagx"
	"github.com/dmitrijs2005/megavault/internal/server/scope"
)

const (
	// ConfigFileEnv names the environment variable consulted when no -c/-config flag is given.
	ConfigFileEnv = "MEGAVAULT_CONFIG"

	// MinSecretKeyLength is the shortest accepted HMAC secret, in bytes.
	MinSecretKeyLength = 32
)

// Config holds runtime settings for the MegaVault server.
//
// Fields:
//   - HTTPAddr: bind address for the HTTP API.
//   - SecretKey: HMAC secret for signing session tokens (HS256). It has no
//     default and must be at least MinSecretKeyLength bytes.
//   - UserEmail / UserPasswordHash: the single account; the hash is bcrypt.
//   - StorageMode / UserFolderID: key addressing, see package scope.
//   - S3*: object store settings. S3UsePathStyle is needed for MinIO and most
//     self-hosted S3 implementations.
//   - Redis*: side-store holding visibility records.
//   - DatabaseDSN: optional PostgreSQL DSN for the multipart upload tracker.
//     When empty, uploads are tracked in memory.
//   - StaleUploadAge / SweepInterval: the abandoned-upload sweeper; a zero
//     interval disables it.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string

	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	UserEmail                   string
	UserPasswordHash            string

	StorageMode  string
	UserFolderID string

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3UsePathStyle bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseDSN    string
	StaleUploadAge time.Duration
	SweepInterval  time.Duration
}

// LoadDefaults populates Config with development defaults. The S3
// credentials are insecure and must be overridden; the secret key is left
// empty so the server refuses to start until one is supplied.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":3000"
	c.ShutdownTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.UserEmail = "admin@megavault.local"
	c.StorageMode = string(scope.ModeFolder)
	c.UserFolderID = "single-user-folder"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "megavault"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3UsePathStyle = true
	c.RedisAddr = "127.0.0.1:6379"
	c.StaleUploadAge = 24 * time.Hour
	c.SweepInterval = time.Hour
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := scope.ParseMode(c.StorageMode); err != nil {
		errs = append(errs, err)
	}
	if c.StorageMode == string(scope.ModeFolder) && c.UserFolderID == "" {
		errs = append(errs, errors.New("user folder id is required in folder mode"))
	}
	switch {
	case c.SecretKey == "":
		errs = append(errs, errors.New("secret key is required"))
	case len(c.SecretKey) < MinSecretKeyLength:
		errs = append(errs, fmt.Errorf("secret key must be at least %d bytes", MinSecretKeyLength))
	}
	if c.S3Bucket == "" {
		errs = append(errs, errors.New("s3 bucket is required"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token validity must be positive"))
	}
	if c.SweepInterval > 0 && c.StaleUploadAge <= 0 {
		errs = append(errs, errors.New("stale upload age must be positive when the sweeper is enabled"))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config (or MEGAVAULT_CONFIG), then the environment, then flags from args.
// args is normally os.Args[1:].
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigFile(args, ConfigFileEnv); path != "" {
		if err := parseJson(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := parseEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
