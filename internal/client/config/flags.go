package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   API base url
//	-v string   collection: assets or tools
//	-n int      page size
//	-t int      request timeout (seconds)
//	-i int      online check interval (seconds)
//	-d string   data directory
//	-l string   log level
//	-o string   directory for QR labels
//	-b string   S3 bucket for QR labels
func parseFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "API base url")
	fs.StringVar(&cfg.Collection, "v", cfg.Collection, "collection: assets or tools")
	fs.IntVar(&cfg.PerPage, "n", cfg.PerPage, "page size")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LabelDir, "o", cfg.LabelDir, "directory for QR labels")
	fs.StringVar(&cfg.LabelBucket, "b", cfg.LabelBucket, "S3 bucket for QR labels")

	if err := flagx.ParseOwn(fs, args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
