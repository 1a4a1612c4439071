package ngstate

import (
	"context"
	"log/slog"
)

// EventKind classifies engine log events.
type EventKind string

const (
	EventImported        EventKind = "sync.imported"
	EventImportFailed    EventKind = "sync.failed"
	EventRepaired        EventKind = "sync.repaired"
	EventGuardSkipped    EventKind = "guard.skipped"
	EventLayerMissed     EventKind = "layer.missed"
	EventTransformFailed EventKind = "transform.failed"
	EventUnknownAction   EventKind = "action.unknown"
	EventActivityFailed  EventKind = "activity.failed"
)

// LogEvent describes something the engine did or declined to do.
type LogEvent struct {
	Kind   EventKind
	Action string
	Layer  string
	Detail string
	Err    error
}

// EventLogger records engine events.
type EventLogger interface {
	LogEvent(LogEvent)
}

// EventLoggerFunc adapts a function to EventLogger.
type EventLoggerFunc func(LogEvent)

// LogEvent implements EventLogger.
func (f EventLoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEventLogger struct{}

func (noopEventLogger) LogEvent(LogEvent) {}

type slogEventLogger struct {
	logger *slog.Logger
}

// NewSlogLogger writes events to logger. Failures log at warn level,
// everything else at debug.
func NewSlogLogger(logger *slog.Logger) EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogEventLogger{logger: logger}
}

func (l slogEventLogger) LogEvent(event LogEvent) {
	level := slog.LevelDebug
	attrs := []slog.Attr{slog.String("kind", string(event.Kind))}
	if event.Action != "" {
		attrs = append(attrs, slog.String("action", event.Action))
	}
	if event.Layer != "" {
		attrs = append(attrs, slog.String("layer", event.Layer))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, "ngstate", attrs...)
}

func loggerOrNoop(logger EventLogger) EventLogger {
	if logger == nil {
		return noopEventLogger{}
	}
	return logger
}
