package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// TimeFormat renders timestamps as "[2017.06.30 01:02:03]"
const TimeFormat = "[2006.01.02 15:04:05]"

var lvlMap = map[string]zerolog.Level{
	"debug": zerolog.DebugLevel, "info": zerolog.InfoLevel,
	"warn": zerolog.WarnLevel, "error": zerolog.ErrorLevel,
}

// ParseLevel maps a config level name to a zerolog level
func ParseLevel(name string) (zerolog.Level, error) {
	level, ok := lvlMap[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// New returns a logger writing to path, or to stderr when path is empty.
// The returned close function releases the file and is safe to call when
// logging to stderr.
func New(path, level string) (zerolog.Logger, func() error, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	if path == "" {
		return NewWithWriter(os.Stderr, lvl), func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening monitor log file: %w", err)
	}
	return NewWithWriter(f, lvl), f.Close, nil
}

// NewWithWriter returns a logger producing lines like
//
//	[2017.06.30 01:02:03] I Analyzing log file log_file=...
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:         w,
		NoColor:     true,
		TimeFormat:  TimeFormat,
		FormatLevel: formatLevel,
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}

func formatLevel(i interface{}) string {
	l, ok := i.(string)
	if !ok || l == "" {
		return "?"
	}
	return strings.ToUpper(l[:1])
}
