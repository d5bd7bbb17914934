package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/lecture-board/internal/model"
)

// Init configures the global logrus logger from cfg. When cfg.File is set,
// output is appended to that file so the terminal UI is left alone; the
// returned closer releases it. An empty file logs to stderr.
func Init(cfg model.LogConfig) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		DisableColors: cfg.File != "",
		FullTimestamp: true,
	})

	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(file)
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
