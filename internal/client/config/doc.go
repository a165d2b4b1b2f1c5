// Package config loads runtime configuration for the ReceiptVault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-e string   S3-compatible endpoint URL
//	-b string   bucket name
//	-d string   path to the local sqlite database
//	-i int      job poll interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "s3_endpoint": "http://127.0.0.1:9000",
//	  "s3_region": "us-east-1",
//	  "s3_bucket": "receipts",
//	  "s3_access_key_id": "minioadmin",
//	  "s3_secret_access_key": "minioadmin",
//	  "database_path": "receiptvault.db",
//	  "cache_dir": "imagecache",
//	  "token_path": "token.jwt",
//	  "job_poll_interval": "5s",
//	  "online_check_addr": "127.0.0.1:9000"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
