package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/sitekeeper/internal/flagx"
	"github.com/dmitrijs2005/sitekeeper/internal/timex"
	"github.com/mitchellh/go-homedir"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerBaseURL           string         `json:"server_base_url"`
	Collection              string         `json:"collection"`
	PerPage                 int            `json:"per_page"`
	RequestTimeout          timex.Duration `json:"request_timeout"`
	OnlineCheckInterval     timex.Duration `json:"online_check_interval"`
	DataDir                 string         `json:"data_dir"`
	LogLevel                string         `json:"log_level"`
	DefaultCheckoutLocation string         `json:"default_checkout_location"`
	VoiceAutoClose          timex.Duration `json:"voice_auto_close"`
	RecorderCommand         []string       `json:"recorder_command"`
	AudioContentType        string         `json:"audio_content_type"`
	AudioFilename           string         `json:"audio_filename"`
	LabelDir                string         `json:"label_dir"`
	LabelBucket             string         `json:"label_bucket"`
	LabelPrefix             string         `json:"label_prefix"`
	S3Region                string         `json:"s3_region"`
	S3Endpoint              string         `json:"s3_endpoint"`
	S3AccessKey             string         `json:"s3_access_key"`
	S3SecretKey             string         `json:"s3_secret_key"`
	S3UsePathMode           bool           `json:"s3_use_path_mode"`
}

// parseJson overlays Config with values from the file named by -c/-config.
// Fields missing from the file keep their current value. Read or decode
// errors panic.
func parseJson(cfg *Config, args []string) {
	jsonConfigFile := flagx.JSONConfigPath(args)
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

	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setString(&cfg.Collection, jc.Collection)
	if jc.PerPage > 0 {
		cfg.PerPage = jc.PerPage
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.DataDir != "" {
		if dir, err := homedir.Expand(jc.DataDir); err == nil {
			cfg.DataDir = dir
		}
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.DefaultCheckoutLocation, jc.DefaultCheckoutLocation)
	if jc.VoiceAutoClose.Duration > 0 {
		cfg.VoiceAutoClose = jc.VoiceAutoClose.Duration
	}
	if len(jc.RecorderCommand) > 0 {
		cfg.RecorderCommand = jc.RecorderCommand
	}
	setString(&cfg.AudioContentType, jc.AudioContentType)
	setString(&cfg.AudioFilename, jc.AudioFilename)
	setString(&cfg.LabelDir, jc.LabelDir)
	setString(&cfg.LabelBucket, jc.LabelBucket)
	setString(&cfg.LabelPrefix, jc.LabelPrefix)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	if jc.S3UsePathMode {
		cfg.S3UsePathMode = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
