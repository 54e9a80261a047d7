package taskfile

import (
	"context"

	"github.com/rs/zerolog"
)

type logKey struct{}

// log pulls the logger out of the context. Every taskfile entry point expects
// a context prepared by WithLogger; calling one without it is a programming
// error.
func log(ctx context.Context) *zerolog.Logger {
	logger, ok := ctx.Value(logKey{}).(*zerolog.Logger)
	if !ok {
		panic("taskfile: context carries no logger, wrap it with WithLogger first")
	}

	return logger
}

// WithLogger returns a context carrying the logger all task output goes
// through.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, logKey{}, logger)
}
