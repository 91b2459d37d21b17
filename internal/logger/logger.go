package logger

import (
	"io"
	"os"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	return New(os.Stderr, dev)
}

// New builds the logger Setup returns, writing to w.
func New(w io.Writer, dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Messages writes esbuild diagnostics to logger at level, one event per
// message with its source location when esbuild reported one.
func Messages(logger *zerolog.Logger, level zerolog.Level, msgs []api.Message) {
	for _, msg := range msgs {
		ev := logger.WithLevel(level).Str("text", msg.Text)
		if msg.PluginName != "" {
			ev = ev.Str("plugin", msg.PluginName)
		}
		if loc := msg.Location; loc != nil {
			ev = ev.Str("file", loc.File).Int("line", loc.Line).Int("column", loc.Column)
		}
		for _, note := range msg.Notes {
			ev = ev.Str("note", note.Text)
		}
		ev.Msg("esbuild")
	}
}
