package config

import "time"

// Config holds runtime settings for the ReceiptVault CLI.
//
// The S3 fields point at any S3-compatible store (MinIO works). The
// connectivity probe address gates durable job execution; by default it is
// derived from the S3 endpoint at startup.
type Config struct {
	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string

	DatabasePath string
	CacheDir     string
	TokenPath    string

	JobPollInterval time.Duration
	OnlineCheckAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.S3Endpoint = "http://127.0.0.1:9000"
	c.S3Region = "us-east-1"
	c.S3Bucket = "receipts"
	c.S3AccessKeyID = "minioadmin"
	c.S3SecretAccessKey = "minioadmin"
	c.DatabasePath = "receiptvault.db"
	c.CacheDir = "imagecache"
	c.TokenPath = "token.jwt"
	c.JobPollInterval = 5 * time.Second
	c.OnlineCheckAddr = "127.0.0.1:9000"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
