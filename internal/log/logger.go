package log

import (
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level string
	// Output defaults to stderr.
	Output io.Writer
}

// NewLogger constructs a logrus logger with JSON output at the requested level.
func NewLogger(opts LoggerOptions) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetLevel(logrus.InfoLevel)
	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	}

	level := strings.TrimSpace(opts.Level)
	if level == "" {
		return logger, nil
	}

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, eris.Wrapf(err, "invalid log level: %s", level)
	}

	logger.SetLevel(parsed)
	return logger, nil
}

// Component returns an entry tagged with the owning component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithField("component", name)
}
