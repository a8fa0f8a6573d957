// Package logging configures the process-wide logrus logger. Diagnostic logs go
// to stderr; user-facing command output does not pass through here.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultLevel applies when no level is configured.
const DefaultLevel = "info"

// New returns a logger writing text records to out at the given level.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: lvl < logrus.DebugLevel,
		FullTimestamp:    true,
	})
	return l, nil
}

// Configure applies level to the standard logger. debug forces debug level.
func Configure(level string, debug bool) error {
	if debug {
		level = "debug"
	}
	l, err := New(level, os.Stderr)
	if err != nil {
		return err
	}
	std := logrus.StandardLogger()
	std.SetOutput(l.Out)
	std.SetLevel(l.GetLevel())
	std.SetFormatter(l.Formatter)
	return nil
}

// ParseLevel accepts logrus level names, case-insensitively. Empty means DefaultLevel.
func ParseLevel(level string) (logrus.Level, error) {
	level = strings.TrimSpace(strings.ToLower(level))
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}
