// Package logging provides component loggers built on logrus.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Options configures the base logger.
type Options struct {
	Level string // logrus level name; BMBOX_LOG_LEVEL overrides
	File  string // when set, logs go to this file instead of stderr
}

var (
	base     = newBase(os.Stderr)
	baseMu   sync.RWMutex
	logFile  *os.File
	logFileM sync.Mutex
)

func newBase(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: !isTerminal(out),
	})
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Setup configures the base logger shared by every component.
func Setup(opts Options) error {
	var out io.Writer = os.Stderr
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		logFileM.Lock()
		if logFile != nil {
			logFile.Close()
		}
		logFile = f
		logFileM.Unlock()
		out = f
	}

	logger := newBase(out)

	levelStr := "info"
	if env := os.Getenv("BMBOX_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if opts.Level != "" {
		levelStr = opts.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	baseMu.Lock()
	base = logger
	baseMu.Unlock()
	return nil
}

// NewLogger returns a logger tagged with the given component.
func NewLogger(component string) *logrus.Entry {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base.WithField("component", component)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// Close releases the log file opened by Setup, if any.
func Close() error {
	logFileM.Lock()
	defer logFileM.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
