package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kris-hansen/pfmea/utils/fileutil"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log rotation defaults
const (
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28
)

// LogConfig sends the log to a rotating file instead of stderr
type LogConfig struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// LogFile returns the log path. PFMEA_LOG_FILE wins over the config file.
func (c LogConfig) LogFile() string {
	if p := os.Getenv("PFMEA_LOG_FILE"); p != "" {
		return p
	}
	return c.File
}

// OpenLog returns a rotating writer for the configured log file, or nil
// when logging to a file is not configured
func (c LogConfig) OpenLog() (io.WriteCloser, error) {
	if c.LogFile() == "" {
		return nil, nil
	}
	path, err := fileutil.ExpandPath(c.LogFile())
	if err != nil {
		return nil, fmt.Errorf("invalid log file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    orDefault(c.MaxSizeMB, DefaultLogMaxSizeMB),
		MaxBackups: orDefault(c.MaxBackups, DefaultLogMaxBackups),
		MaxAge:     orDefault(c.MaxAgeDays, DefaultLogMaxAgeDays),
		Compress:   c.Compress,
	}
	DebugLog("[Config] Logging to %s (rotating at %d MB)", path, l.MaxSize)
	return l, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
