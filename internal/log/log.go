// Package log writes diagnostics to a dated file; the terminal belongs to the UI.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jscyril/moz/internal/config"
	"github.com/jscyril/moz/internal/filesystem"
	"github.com/jscyril/moz/internal/where"
	"github.com/sirupsen/logrus"
)

// enabled gates every emission; when logging is off all calls are no-ops
var enabled bool

// Setup opens <config>/logs/<date>.log and configures format and level
func Setup(cfg config.LogConfig) error {
	enabled = cfg.Write
	if !enabled {
		return nil
	}

	filename := fmt.Sprintf("%s.log", time.Now().Format("2006-01-02"))
	path := filepath.Join(where.Logs(), filename)

	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(f)

	if cfg.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	return nil
}

// Enabled reports whether log output is being written
func Enabled() bool {
	return enabled
}

// Entry is a logger carrying structured fields
type Entry struct {
	entry *logrus.Entry
}

// With returns an entry carrying the given fields
func With(fields logrus.Fields) Entry {
	return Entry{entry: logrus.WithFields(fields)}
}

// Session returns an entry tagged with a playback session id
func Session(id string) Entry {
	return With(logrus.Fields{"session": id})
}

// With adds more fields to the entry
func (e Entry) With(fields logrus.Fields) Entry {
	return Entry{entry: e.entry.WithFields(fields)}
}

func (e Entry) Errorf(format string, args ...interface{}) {
	if enabled {
		e.entry.Errorf(format, args...)
	}
}

func (e Entry) Warnf(format string, args ...interface{}) {
	if enabled {
		e.entry.Warnf(format, args...)
	}
}

func (e Entry) Infof(format string, args ...interface{}) {
	if enabled {
		e.entry.Infof(format, args...)
	}
}

func (e Entry) Debugf(format string, args ...interface{}) {
	if enabled {
		e.entry.Debugf(format, args...)
	}
}

func Error(args ...interface{}) {
	if enabled {
		logrus.Error(args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if enabled {
		logrus.Errorf(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if enabled {
		logrus.Warnf(format, args...)
	}
}

func Info(args ...interface{}) {
	if enabled {
		logrus.Info(args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled {
		logrus.Infof(format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if enabled {
		logrus.Debugf(format, args...)
	}
}
