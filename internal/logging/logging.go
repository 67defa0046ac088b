// Package logging routes zerolog output to a file, since the terminal
// belongs to the UI.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TimeFormat is used for console-formatted log lines
const TimeFormat = "2006-01-02_15:04:05"

// Setup points the global logger at path, creating parent directories.
// debug forces the debug level regardless of level.
func Setup(path, level string, debug bool) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, err
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}

	log.Logger = New(f, lvl)
	return f, nil
}

// New builds a caller-annotated console logger writing to w
func New(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: TimeFormat, NoColor: true}).
		Level(lvl).
		With().Timestamp().Caller().Logger()
}

// DefaultPath returns phub.log next to the database
func DefaultPath(dataDir string) string {
	if dataDir == "" {
		dir := os.Getenv("XDG_DATA_HOME")
		if dir == "" {
			home, _ := os.UserHomeDir()
			dir = filepath.Join(home, ".local", "share")
		}
		dataDir = filepath.Join(dir, "phub")
	}
	return filepath.Join(dataDir, "phub.log")
}
