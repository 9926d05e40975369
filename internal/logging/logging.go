// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger setup.
type Options struct {
	Level string
	// File, when set, receives an uncoloured copy of the console output.
	File io.Writer
	// JSON disables the console writer, e.g. when output is shipped elsewhere.
	JSON bool
}

// ParseLevel maps a case-insensitive level name to a zerolog level,
// defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup replaces the global logger.
func Setup(opts Options) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	var out io.Writer
	if opts.JSON {
		out = os.Stdout
	} else {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if opts.File != nil {
		out = zerolog.MultiLevelWriter(out, zerolog.ConsoleWriter{
			Out:        opts.File,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	log.Info().Str("level", zerolog.GlobalLevel().String()).Msg("logging set up")
	return log.Logger
}

// Sampled returns a logger for per-frame events: at most 5 entries per
// 10 seconds, then 1 in 100.
func Sampled() zerolog.Logger {
	return log.Logger.With().Bool("sampled", true).Logger().Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}
