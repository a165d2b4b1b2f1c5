package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mhadley/receiptvault/internal/flagx"
	"github.com/mhadley/receiptvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	S3Endpoint        string         `json:"s3_endpoint"`
	S3Region          string         `json:"s3_region"`
	S3Bucket          string         `json:"s3_bucket"`
	S3AccessKeyID     string         `json:"s3_access_key_id"`
	S3SecretAccessKey string         `json:"s3_secret_access_key"`
	DatabasePath      string         `json:"database_path"`
	CacheDir          string         `json:"cache_dir"`
	TokenPath         string         `json:"token_path"`
	JobPollInterval   timex.Duration `json:"job_poll_interval"`
	OnlineCheckAddr   string         `json:"online_check_addr"`
}

// parseJson overlays cfg with values loaded from a JSON file. The file path
// comes from the -c/-config flags via flagx.JsonConfigFlags; with no flag set
// nothing is loaded. Empty JSON fields leave the current value untouched.
// Read or unmarshal errors panic; configuration is resolved once at startup
// and a broken file should stop the process.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.S3Endpoint != "" {
		cfg.S3Endpoint = jc.S3Endpoint
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3AccessKeyID != "" {
		cfg.S3AccessKeyID = jc.S3AccessKeyID
	}
	if jc.S3SecretAccessKey != "" {
		cfg.S3SecretAccessKey = jc.S3SecretAccessKey
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.CacheDir != "" {
		cfg.CacheDir = jc.CacheDir
	}
	if jc.TokenPath != "" {
		cfg.TokenPath = jc.TokenPath
	}
	if jc.JobPollInterval.Duration != 0 {
		cfg.JobPollInterval = time.Duration(jc.JobPollInterval.Duration)
	}
	if jc.OnlineCheckAddr != "" {
		cfg.OnlineCheckAddr = jc.OnlineCheckAddr
	}
}
