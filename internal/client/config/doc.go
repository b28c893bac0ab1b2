// Package config loads runtime configuration for the MegaVault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c / -config or MEGAVAULT_CLI_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-s string   base URL of the MegaVault server
//	-p int      multipart part size (MiB)
//	-j int      number of parts uploaded in parallel
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:3000",
//	  "part_size_mb": 8,
//	  "concurrency": 4,
//	  "request_timeout": "5m"
//	}
package config
