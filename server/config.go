package server

import (
	"fmt"
	"os"
	"strconv"

	"github.com/roadwatch/roadwatch/pkg/kibi"
)

// All server configuration comes from the environment, so that the same
// binary runs unchanged as a dev process, in a container, or under systemd.
// Everything is optional; defaults below.

const (
	DefaultPort          = 8080
	DefaultMaxFrameSize  = 8 * 1024 * 1024
	DefaultUploadDir     = "uploads"
	DefaultDBDir         = "."
	DefaultConfThreshold = 0.35
	DefaultAlertConf     = 0.5
)

type Config struct {
	APIKey         string  // ROADWATCH_API_KEY. Empty disables the shared-secret check.
	Port           int     // ROADWATCH_PORT
	SaveUploads    bool    // ROADWATCH_SAVE_UPLOADS. Persist submitted frames to storage.
	UploadDir      string  // ROADWATCH_UPLOAD_DIR. Filesystem storage root.
	GCSBucket      string  // ROADWATCH_GCS_BUCKET. When set, frames go to GCS instead of the local filesystem.
	DBDir          string  // ROADWATCH_DB_DIR. Directory holding alerts.sqlite.
	MaxFrameSize   int64   // ROADWATCH_MAX_FRAME_SIZE, eg "8m". Upper bound on a submitted frame.
	ConfThreshold  float32 // ROADWATCH_CONF_THRESHOLD. Detections below this are discarded.
	AlertConf      float32 // ROADWATCH_ALERT_CONF. Detections at or above this become alerts.
	AnnotateStream bool    // ROADWATCH_ANNOTATE. Push annotated frames (not just metadata) to stream subscribers.

	// Set from the --hot CLI flag, not the environment
	HotReloadWWW bool
}

// LoadConfig reads configuration from the environment, applying defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		APIKey:         os.Getenv("ROADWATCH_API_KEY"),
		Port:           DefaultPort,
		SaveUploads:    true,
		UploadDir:      DefaultUploadDir,
		GCSBucket:      os.Getenv("ROADWATCH_GCS_BUCKET"),
		DBDir:          DefaultDBDir,
		MaxFrameSize:   DefaultMaxFrameSize,
		ConfThreshold:  DefaultConfThreshold,
		AlertConf:      DefaultAlertConf,
		AnnotateStream: envBool("ROADWATCH_ANNOTATE", false),
	}
	if v := os.Getenv("ROADWATCH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("Invalid ROADWATCH_PORT '%v'", v)
		}
		cfg.Port = port
	}
	cfg.SaveUploads = envBool("ROADWATCH_SAVE_UPLOADS", true)
	if v := os.Getenv("ROADWATCH_UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("ROADWATCH_DB_DIR"); v != "" {
		cfg.DBDir = v
	}
	if v := os.Getenv("ROADWATCH_MAX_FRAME_SIZE"); v != "" {
		size, err := kibi.Parse(v)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("Invalid ROADWATCH_MAX_FRAME_SIZE '%v'", v)
		}
		cfg.MaxFrameSize = size
	}
	if v := os.Getenv("ROADWATCH_CONF_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("Invalid ROADWATCH_CONF_THRESHOLD '%v'", v)
		}
		cfg.ConfThreshold = float32(f)
	}
	if v := os.Getenv("ROADWATCH_ALERT_CONF"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("Invalid ROADWATCH_ALERT_CONF '%v'", v)
		}
		cfg.AlertConf = float32(f)
	}
	return cfg, nil
}

func envBool(key string, dflt bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return dflt
}
