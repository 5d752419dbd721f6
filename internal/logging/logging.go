package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type (
	// Config contains the logging settings of the process.
	Config struct {
		Level  string      `mapstructure:"level"`
		Format string      `mapstructure:"format"`
		File   *FileConfig `mapstructure:"file"`
	}

	// FileConfig enables a rotating log file next to stderr.
	FileConfig struct {
		Filename   string `mapstructure:"filename"`
		MaxSize    int    `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
		Compress   bool   `mapstructure:"compress"`
	}
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup configures the standard logrus logger from conf.
func Setup(conf Config) error {
	return Configure(logrus.StandardLogger(), os.Stderr, conf)
}

// Configure applies conf to logger, writing to out and, when
// configured, to a lumberjack rotating file.
func Configure(logger *logrus.Logger, out io.Writer, conf Config) error {
	level := logrus.InfoLevel
	if conf.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(conf.Level); err != nil {
			return fmt.Errorf("error parsing log level: %w", err)
		}
	}

	switch conf.Format {
	case "", FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format '%s'", conf.Format)
	}

	if f := conf.File; f != nil && f.Filename != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   f.Filename,
			MaxSize:    f.MaxSize,    // megabytes
			MaxBackups: f.MaxBackups, // number of backups
			MaxAge:     f.MaxAge,     // days
			Compress:   f.Compress,
		})
	}

	logger.SetLevel(level)
	logger.SetOutput(out)
	return nil
}
