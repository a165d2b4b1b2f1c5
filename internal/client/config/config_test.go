package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:9000", c.S3Endpoint)
	assert.Equal(t, "receipts", c.S3Bucket)
	assert.Equal(t, "receiptvault.db", c.DatabasePath)
	assert.Equal(t, 5*time.Second, c.JobPollInterval)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:9000", cfg.S3Endpoint)
	assert.Equal(t, 5*time.Second, cfg.JobPollInterval)
}
