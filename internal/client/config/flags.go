package config

import (
	"flag"
	"os"
	"time"

	"github.com/mhadley/receiptvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-e string   S3-compatible endpoint URL (default from Config)
//	-b string   bucket name (default from Config)
//	-d string   local sqlite database path (default from Config)
//	-i int      job poll interval in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-e", "-b", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.S3Endpoint, "e", cfg.S3Endpoint, "S3-compatible endpoint URL")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "bucket name")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	jobPollInterval := fs.Int("i", int(cfg.JobPollInterval.Seconds()), "job poll interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.JobPollInterval = time.Duration(*jobPollInterval) * time.Second
}
