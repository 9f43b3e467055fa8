package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Fields = logrus.Fields

type LogConfig struct {
	Level      string
	Format     string
	Output     string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Logger struct {
	entry *logrus.Entry
}

func New(config LogConfig) (*Logger, error) {
	base := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}
	base.SetLevel(level)

	switch config.Format {
	case "text":
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	base.SetOutput(resolveOutput(config))

	return &Logger{entry: logrus.NewEntry(base)}, nil
}

func resolveOutput(config LogConfig) io.Writer {
	switch config.Output {
	case "stderr":
		return os.Stderr
	case "file":
		if config.FilePath == "" {
			return os.Stdout
		}
		return &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    orDefault(config.MaxSizeMB, 100),
			MaxBackups: orDefault(config.MaxBackups, 3),
			MaxAge:     orDefault(config.MaxAgeDays, 14),
			Compress:   true,
		}
	default:
		return os.Stdout
	}
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func (logger *Logger) WithFields(fields Fields) *Logger {
	return &Logger{entry: logger.entry.WithFields(fields)}
}

func (logger *Logger) WithError(err error) *Logger {
	return &Logger{entry: logger.entry.WithError(err)}
}

func (logger *Logger) Debug(msg string, keysAndValues ...interface{}) {
	logger.entry.WithFields(fieldsFromPairs(keysAndValues)).Debug(msg)
}

func (logger *Logger) Info(msg string, keysAndValues ...interface{}) {
	logger.entry.WithFields(fieldsFromPairs(keysAndValues)).Info(msg)
}

func (logger *Logger) Warn(msg string, keysAndValues ...interface{}) {
	logger.entry.WithFields(fieldsFromPairs(keysAndValues)).Warn(msg)
}

func (logger *Logger) Error(msg string, keysAndValues ...interface{}) {
	logger.entry.WithFields(fieldsFromPairs(keysAndValues)).Error(msg)
}

// LogService records one service operation with its duration and outcome.
func (logger *Logger) LogService(service, operation string, duration time.Duration, details map[string]interface{}, err error) {
	entry := logger.entry.WithFields(Fields{
		"service":     service,
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	})

	if details != nil {
		entry = entry.WithFields(Fields(details))
	}

	if err != nil {
		entry.WithError(err).Error("Service operation failed")
		return
	}
	entry.Debug("Service operation completed")
}

// LogPipeline records a pipeline lifecycle event for one discovery run.
func (logger *Logger) LogPipeline(requestID, userID, event string, duration time.Duration, err error) {
	entry := logger.entry.WithFields(Fields{
		"request_id":  requestID,
		"user_id":     userID,
		"event":       event,
		"duration_ms": duration.Milliseconds(),
	})

	if err != nil {
		entry.WithError(err).Error("Pipeline event")
		return
	}
	entry.Info("Pipeline event")
}

func fieldsFromPairs(keysAndValues []interface{}) Fields {
	fields := Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
