package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/mitchellh/go-homedir"
)

// Config holds runtime settings for the SiteKeeper CLI.
type Config struct {
	// ServerBaseURL is the API root, e.g. http://localhost:3000/api.
	ServerBaseURL string
	// Collection is "assets" or "tools".
	Collection string
	PerPage    int

	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration

	// DataDir holds the local database.
	DataDir  string
	LogLevel string

	DefaultCheckoutLocation string

	// VoiceAutoClose is how long a successful voice result stays on screen.
	VoiceAutoClose   time.Duration
	RecorderCommand  []string
	AudioContentType string
	AudioFilename    string

	// LabelDir receives QR labels unless LabelBucket is set.
	LabelDir      string
	LabelBucket   string
	LabelPrefix   string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3UsePathMode bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:3000/api"
	c.Collection = models.AssetsVariant.Collection
	c.PerPage = 10
	c.RequestTimeout = 15 * time.Second
	c.OnlineCheckInterval = 5 * time.Second
	c.DataDir = defaultDataDir()
	c.LogLevel = "info"
	c.DefaultCheckoutLocation = "Job Site"
	c.VoiceAutoClose = 3 * time.Second
	c.RecorderCommand = []string{"arecord", "-q", "-f", "cd", "-t", "wav"}
	c.AudioContentType = "audio/wav"
	c.AudioFilename = "recording.wav"
	c.LabelDir = "labels"
	c.S3Region = "us-east-1"
}

func defaultDataDir() string {
	dir, err := homedir.Expand("~/.sitekeeper")
	if err != nil {
		return ".sitekeeper"
	}
	return dir
}

// DatabasePath is the SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "sitekeeper.db")
}

// Variant resolves Collection.
func (c *Config) Variant() (models.Variant, error) {
	return models.VariantFor(c.Collection)
}

// Validate reports settings the client cannot run with.
func (c *Config) Validate() error {
	if c.ServerBaseURL == "" {
		return fmt.Errorf("server base url is empty")
	}
	if _, err := c.Variant(); err != nil {
		return err
	}
	if c.PerPage < 1 {
		return fmt.Errorf("per page must be >= 1, got %d", c.PerPage)
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("online check interval must be positive")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. Bad JSON or flag values panic.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
