package modgraph

import (
	"log/slog"

	"go.uber.org/zap"
)

// Logger defines the interface for structured logging used by the loader,
// the orchestrator and the application. Discovery, activation, every phase
// and shutdown are logged through it, so the host decides where those logs
// go and how they look.
//
// Arguments are key-value pairs:
//
//	logger.Info("Module activated", "module", "acme/blog.Module")
//
// *slog.Logger satisfies it directly; ZapLogger adapts a zap logger.
type Logger interface {
	// Info logs normal progress: modules loaded, application initialized.
	//
	// Example:
	//	logger.Info("Modules loaded", "count", 12, "root", root)
	Info(msg string, args ...any)

	// Error logs failures: a hook error, a cycle, an observer that failed.
	//
	// Example:
	//	logger.Error("Lifecycle hook failed", "phase", "Configure", "module", t, "error", err)
	Error(msg string, args ...any)

	// Warn logs conditions that do not stop the lifecycle.
	//
	// Example:
	//	logger.Warn("Failed to watch new plugin directory", "dir", dir, "error", err)
	Warn(msg string, args ...any)

	// Debug logs per-module detail, typically disabled in production.
	//
	// Example:
	//	logger.Debug("Activated module", "module", t, "instance", "*blog.Module")
	Debug(msg string, args ...any)
}

func discardLogger() Logger {
	return slog.New(slog.DiscardHandler)
}

// ZapLogger adapts a zap logger to Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps l. A nil logger is replaced with zap.NewNop().
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{sugar: l.Sugar()}
}

// Info logs at zap's info level with args as structured fields.
func (z *ZapLogger) Info(msg string, args ...any) { z.sugar.Infow(msg, args...) }

// Error logs at zap's error level.
func (z *ZapLogger) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// Warn logs at zap's warn level.
func (z *ZapLogger) Warn(msg string, args ...any) { z.sugar.Warnw(msg, args...) }

// Debug logs at zap's debug level.
func (z *ZapLogger) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }

// Sync flushes buffered log entries.
func (z *ZapLogger) Sync() error { return z.sugar.Sync() }
