package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/baechuer/real-time-ressys/pkg/requestctx"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var Log zerolog.Logger

func Init() {
	InitWithWriter(os.Stdout)
}

func InitWithWriter(w io.Writer) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	format := os.Getenv("LOG_FORMAT") // "json" or "console"
	if format == "" {
		format = "console"
	}

	var out io.Writer = w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	Log = zerolog.New(out).With().Timestamp().Logger().Level(level)
	zlog.Logger = Log
}

// Ctx returns the global logger tagged with the request id, if ctx has one.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zlog.Logger
	if reqID := requestctx.GetRequestID(ctx); reqID != "" {
		l = l.With().Str("request_id", reqID).Logger()
	}
	return &l
}
