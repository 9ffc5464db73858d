// Package log provides the structured logger shared by every component
// of the emulation core. Nothing in the core treats a log line as a
// control-flow signal: logging is always a side channel for hardware
// misuse that the real console would silently tolerate.
package log

import "github.com/sirupsen/logrus"

// Logger is the interface components depend on, satisfied by
// *logrus.Logger and *logrus.Entry alike.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// New returns a logrus logger at warn level that a host can pass as
// gameboy.Config.Logger; when no logger is supplied the core uses Nop.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	l.Formatter = &logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
		DisableSorting:   true,
		DisableQuote:     true,
	}
	return l
}

// Nop is a Logger that discards everything, used in tests that don't
// want to assert on log output.
type nop struct{}

func (nop) Debugf(string, ...interface{}) {}
func (nop) Warnf(string, ...interface{})  {}
func (nop) Errorf(string, ...interface{}) {}

// Nop returns a Logger that discards all messages.
func Nop() Logger { return nop{} }
