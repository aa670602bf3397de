package config

import (
	"strings"

	"github.com/pitabwire/frame/config"
)

// CaptureConfig holds configuration for the voxpense service.
type CaptureConfig struct {
	config.ConfigurationDefault

	// Capture defaults; per-capture create requests may override them.
	DefaultLanguage   string `envDefault:"en-US" env:"CAPTURE_LANGUAGE"`
	ContinuousCapture bool   `envDefault:"false" env:"CAPTURE_CONTINUOUS"`
	InterimResults    bool   `envDefault:"false" env:"CAPTURE_INTERIM_RESULTS"`
	MaxCaptures       int    `envDefault:"256"   env:"CAPTURE_MAX_ACTIVE"`

	// Vocabulary profiles.
	VocabDir       string `envDefault:"./vocab" env:"VOCAB_DIR"`
	DefaultProfile string `envDefault:"default" env:"VOCAB_DEFAULT_PROFILE"`
	VocabWatch     bool   `envDefault:"true"    env:"VOCAB_WATCH"`

	// Outbound notification sinks.
	NotifySinkURLs    string `envDefault:""    env:"NOTIFY_SINK_URLS"`
	NotifySecret      string `envDefault:""    env:"NOTIFY_SECRET"`
	NotifyMaxRetries  int    `envDefault:"5"   env:"NOTIFY_MAX_RETRIES"`
	NotifyTimeoutSec  int    `envDefault:"10"  env:"NOTIFY_TIMEOUT_SEC"`
	NotifyBackoffSec  int    `envDefault:"1"   env:"NOTIFY_BACKOFF_INITIAL_SEC"`
	NotifyBackoffMax  int    `envDefault:"300" env:"NOTIFY_BACKOFF_MAX_SEC"`
	NotifyAllowLocal  bool   `envDefault:"false" env:"NOTIFY_ALLOW_LOCAL_SINKS"`
	CBFailThreshold   int    `envDefault:"5"   env:"CB_FAILURE_THRESHOLD"`
	CBResetTimeoutSec int    `envDefault:"60"  env:"CB_RESET_TIMEOUT_SEC"`
}

// SinkURLs splits the configured comma-separated notification sink list.
func (c *CaptureConfig) SinkURLs() []string {
	if c.NotifySinkURLs == "" {
		return nil
	}
	parts := strings.Split(c.NotifySinkURLs, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}
