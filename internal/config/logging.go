package config

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger builds a logger from the log settings. Output goes to the configured file,
// or to fallback when no file is set. The returned closer releases the file.
func (c LogConfig) Logger(fallback io.Writer) (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log.level: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if c.File == "" {
		logger.SetOutput(fallback)
		return logger, io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, f, nil
}
