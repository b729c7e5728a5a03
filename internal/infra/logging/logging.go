// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a structured logger writing to w. Unknown level strings fall
// back to info. When pretty is true the output is human-readable console
// format instead of JSON.
func New(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewDefault returns a JSON logger on stderr at the given level. Logs go to
// stderr so stdio transport mode keeps stdout free for protocol frames.
func NewDefault(level string) zerolog.Logger {
	return New(os.Stderr, level, false)
}
