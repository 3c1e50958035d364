// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// GlobalLogger is the default logger instance for background components
// that have no request context handler of their own.
var GlobalLogger *slog.Logger

func init() {
	GlobalLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// EnableRepoLogging toggles RepoLogger output.
var EnableRepoLogging = true

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	table  string
	logger *slog.Logger
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table, logger: GlobalLogger}
}

// WithLogger routes output through logger, typically the request-aware one.
func (l *RepoLogger) WithLogger(logger *slog.Logger) *RepoLogger {
	if logger == nil {
		return l
	}
	return &RepoLogger{table: l.table, logger: logger}
}

// Log records a successful repository operation at debug level.
func (l *RepoLogger) Log(ctx context.Context, operation string, attrs ...slog.Attr) {
	if !EnableRepoLogging {
		return
	}
	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.String("table", l.table), slog.String("operation", operation))
	for _, a := range attrs {
		args = append(args, a)
	}
	l.logger.DebugContext(ctx, "repository "+operation, args...)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	if !EnableRepoLogging {
		return
	}
	l.logger.ErrorContext(ctx, "repository error",
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
