package config

import (
	"fmt"
	"strconv"
	"time"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// parseEnv overlays MEGAVAULT_* environment variables onto config.
// STORAGE_MODE and USER_FOLDER_ID are accepted as unprefixed aliases.
func parseEnv(config *Config, lookup lookupFunc) error {
	get := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}

	strs := []struct {
		dst  *string
		keys []string
	}{
		{&config.HTTPAddr, []string{"MEGAVAULT_HTTP_ADDR"}},
		{&config.LogLevel, []string{"MEGAVAULT_LOG_LEVEL"}},
		{&config.LogFormat, []string{"MEGAVAULT_LOG_FORMAT"}},
		{&config.SecretKey, []string{"MEGAVAULT_SECRET_KEY"}},
		{&config.UserEmail, []string{"MEGAVAULT_USER_EMAIL"}},
		{&config.UserPasswordHash, []string{"MEGAVAULT_USER_PASSWORD_HASH"}},
		{&config.StorageMode, []string{"MEGAVAULT_STORAGE_MODE", "STORAGE_MODE"}},
		{&config.UserFolderID, []string{"MEGAVAULT_USER_FOLDER_ID", "USER_FOLDER_ID"}},
		{&config.S3RootUser, []string{"MEGAVAULT_S3_ACCESS_KEY_ID"}},
		{&config.S3RootPassword, []string{"MEGAVAULT_S3_SECRET_ACCESS_KEY"}},
		{&config.S3Bucket, []string{"MEGAVAULT_S3_BUCKET"}},
		{&config.S3Region, []string{"MEGAVAULT_S3_REGION"}},
		{&config.S3BaseEndpoint, []string{"MEGAVAULT_S3_ENDPOINT"}},
		{&config.RedisAddr, []string{"MEGAVAULT_REDIS_ADDR"}},
		{&config.RedisPassword, []string{"MEGAVAULT_REDIS_PASSWORD"}},
		{&config.DatabaseDSN, []string{"MEGAVAULT_DATABASE_DSN"}},
	}
	for _, s := range strs {
		if v, ok := get(s.keys...); ok {
			*s.dst = v
		}
	}

	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&config.ShutdownTimeout, "MEGAVAULT_SHUTDOWN_TIMEOUT"},
		{&config.AccessTokenValidityDuration, "MEGAVAULT_ACCESS_TOKEN_VALIDITY"},
		{&config.StaleUploadAge, "MEGAVAULT_STALE_UPLOAD_AGE"},
		{&config.SweepInterval, "MEGAVAULT_SWEEP_INTERVAL"},
	}
	for _, d := range durations {
		v, ok := get(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", d.key, v)
		}
		*d.dst = parsed
	}

	if v, ok := get("MEGAVAULT_S3_USE_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MEGAVAULT_S3_USE_PATH_STYLE: invalid bool %q", v)
		}
		config.S3UsePathStyle = b
	}

	if v, ok := get("MEGAVAULT_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEGAVAULT_REDIS_DB: invalid integer %q", v)
		}
		config.RedisDB = n
	}

	return nil
}
