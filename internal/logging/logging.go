// Package logging configures the shared logrus logger: base formatter,
// level selection, and optional rotating file output.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/orderforge/spapi-fulfill/internal/config"
)

const (
	defaultMaxSizeMB  = 20
	defaultMaxBackups = 3
)

// SetupBaseLogger applies the shared formatter and default level. Called
// from init in the entry points so early failures are already structured.
func SetupBaseLogger() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetLevel(log.InfoLevel)
	log.SetOutput(os.Stderr)
}

// Configure applies the logging configuration: level and, when a file is
// set, rotating output via lumberjack alongside stderr.
func Configure(cfg config.LoggingConfig) {
	if level := strings.TrimSpace(cfg.Level); level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			log.Warnf("unknown log level %q, keeping %s", level, log.GetLevel())
		} else {
			log.SetLevel(parsed)
		}
	}

	if cfg.File == "" {
		return
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotating))
}
