package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/megavault/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration file.
// Durations accept "15m"-style strings or integer nanoseconds. Only fields
// present (non-zero) in the file override the current values.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	LogLevel        string         `json:"log_level"`
	LogFormat       string         `json:"log_format"`

	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	UserEmail                   string         `json:"user_email"`
	UserPasswordHash            string         `json:"user_password_hash"`

	StorageMode  string `json:"storage_mode"`
	UserFolderID string `json:"user_folder_id"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3UsePathStyle *bool  `json:"s3_use_path_style"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       *int   `json:"redis_db"`

	DatabaseDSN    string         `json:"database_dsn"`
	StaleUploadAge timex.Duration `json:"stale_upload_age"`
	SweepInterval  timex.Duration `json:"sweep_interval"`
}

// parseJson overlays the values found in the JSON file at path onto config.
func parseJson(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setString(&config.UserEmail, c.UserEmail)
	setString(&config.UserPasswordHash, c.UserPasswordHash)

	setString(&config.StorageMode, c.StorageMode)
	setString(&config.UserFolderID, c.UserFolderID)

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setDuration(&config.StaleUploadAge, c.StaleUploadAge)
	setDuration(&config.SweepInterval, c.SweepInterval)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
