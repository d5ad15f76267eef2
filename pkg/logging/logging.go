// Package logging configures process-wide logging for kvgraph.
//
// Log lines go through the standard library logger so messages written with
// log.Printf by other packages end up in the same place. When a log file is
// configured, output is written to a size-rotated file via lumberjack.
//
// Levels gate the leveled helpers (Debugf, Infof, Warningf, Errorf) and the badger
// adapter returned by Badger. Plain log.Printf calls are never filtered.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/natefinch/lumberjack"

	"github.com/orneryd/kvgraph/pkg/config"
)

// Level is a log severity.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
}

// ParseLevel parses a level name. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

var current atomic.Int32

func init() {
	current.Store(int32(LevelInfo))
}

// SetLevel sets the minimum level written by the leveled helpers.
func SetLevel(l Level) {
	current.Store(int32(l))
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	return Level(current.Load())
}

// Enabled reports whether messages at l are written.
func Enabled(l Level) bool {
	return l >= GetLevel()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup applies cfg to the standard logger and returns a closer for the log file.
// With no file configured, output goes to stderr and the closer is a no-op.
func Setup(cfg config.LoggingConfig) io.Closer {
	SetLevel(ParseLevel(cfg.Level))

	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	l := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
	}
	log.SetOutput(l)
	return l
}

func logf(l Level, format string, args ...interface{}) {
	if !Enabled(l) {
		return
	}
	log.Printf(l.String()+" "+format, args...)
}

// Debugf logs at DEBUG level.
func Debugf(format string, args ...interface{}) {
	logf(LevelDebug, format, args...)
}

// Infof logs at INFO level.
func Infof(format string, args ...interface{}) {
	logf(LevelInfo, format, args...)
}

// Warningf logs at WARNING level.
func Warningf(format string, args ...interface{}) {
	logf(LevelWarn, format, args...)
}

// Errorf logs at ERROR level.
func Errorf(format string, args ...interface{}) {
	logf(LevelError, format, args...)
}
