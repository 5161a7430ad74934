// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text logger at level writing to out. Colors are forced
// when out is a terminal-backed file.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	lg := logrus.New()
	lg.Out = out
	lg.Level = lvl
	lg.Formatter = &logrus.TextFormatter{
		ForceColors:     isTerminal(out),
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	}
	return lg, nil
}

// ToFile logs into path, appending. The terminal view uses it so log lines
// do not tear the screen.
func ToFile(level, path string) (*logrus.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	lg, err := New(level, f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return lg, f, nil
}

// Discard is a logger that drops everything.
func Discard() *logrus.Logger {
	lg := logrus.New()
	lg.Out = io.Discard
	return lg
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	st, err := f.Stat()
	return err == nil && st.Mode()&os.ModeCharDevice != 0
}
