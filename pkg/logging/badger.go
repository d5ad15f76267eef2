package logging

import (
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerLogger routes BadgerDB's internal messages through the leveled helpers.
// Badger is chatty at INFO, so its INFO messages are logged at DEBUG.
type BadgerLogger struct{}

var _ badger.Logger = BadgerLogger{}

// Badger returns a badger.Logger backed by this package.
func Badger() badger.Logger {
	return BadgerLogger{}
}

func (BadgerLogger) Errorf(format string, args ...interface{}) {
	logf(LevelError, "[badger] "+trimNewline(format), args...)
}

func (BadgerLogger) Warningf(format string, args ...interface{}) {
	logf(LevelWarn, "[badger] "+trimNewline(format), args...)
}

func (BadgerLogger) Infof(format string, args ...interface{}) {
	logf(LevelDebug, "[badger] "+trimNewline(format), args...)
}

func (BadgerLogger) Debugf(format string, args ...interface{}) {
	logf(LevelDebug, "[badger] "+trimNewline(format), args...)
}

func trimNewline(format string) string {
	return strings.TrimRight(format, "\n")
}
