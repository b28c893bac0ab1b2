package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/megavault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Zero values leave the current setting untouched.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	PartSizeMB     int64          `json:"part_size_mb"`
	Concurrency    int            `json:"concurrency"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with values loaded from the JSON file at path.
func parseJson(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.PartSizeMB > 0 {
		cfg.PartSize = jc.PartSizeMB * mib
	}
	if jc.Concurrency > 0 {
		cfg.Concurrency = jc.Concurrency
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
