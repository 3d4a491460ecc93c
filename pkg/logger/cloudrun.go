package logger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// CloudRunHandler implements slog.Handler
type CloudRunHandler struct {
	level slog.Level
	mu    *sync.Mutex
	out   io.Writer
}

func NewCloudRunHandler(level slog.Level) slog.Handler {
	return NewCloudRunHandlerWriter(os.Stdout, level)
}

// NewCloudRunHandlerWriter writes Cloud Logging JSON lines to w.
func NewCloudRunHandlerWriter(w io.Writer, level slog.Level) *CloudRunHandler {
	return &CloudRunHandler{level: level, mu: &sync.Mutex{}, out: w}
}

func (h *CloudRunHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *CloudRunHandler) Handle(_ context.Context, r slog.Record) error {
	// Map slog levels → Cloud Logging severity
	severity := mapSeverity(r.Level)

	// Build the base event
	event := map[string]any{
		"severity": severity,
		"message":  r.Message,
		"time":     r.Time.Format(time.RFC3339Nano),
	}

	// Add attributes into event.data
	if r.NumAttrs() > 0 {
		data := make(map[string]any)

		r.Attrs(func(a slog.Attr) bool {
			addAttr(data, a)
			return true
		})

		event["data"] = data
	}

	// Encode to JSON
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Cloud Run: stdout for all severities
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.out.Write(append(b, '\n'))
	return err
}

func (h *CloudRunHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &withAttrsHandler{handler: h, attrs: attrs}
}

func (h *CloudRunHandler) WithGroup(name string) slog.Handler {
	return &withAttrsHandler{handler: h, group: name}
}

// ---- Helpers ----

func mapSeverity(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARNING"
	case slog.LevelError:
		return "ERROR"
	default:
		return "DEFAULT"
	}
}

// addAttr flattens group values into nested maps.
func addAttr(data map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		if err, ok := v.Any().(error); ok {
			data[a.Key] = err.Error()
			return
		}
		data[a.Key] = v.Any()
		return
	}
	attrs := v.Group()
	if len(attrs) == 0 {
		return
	}
	target := data
	if a.Key != "" {
		target = make(map[string]any, len(attrs))
		data[a.Key] = target
	}
	for _, ga := range attrs {
		addAttr(target, ga)
	}
}

// wrapper that injects static attrs, optionally under a group
type withAttrsHandler struct {
	handler slog.Handler
	attrs   []slog.Attr
	group   string
}

func (h *withAttrsHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h *withAttrsHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.group != "" {
		var inner []slog.Attr
		r.Attrs(func(a slog.Attr) bool {
			inner = append(inner, a)
			return true
		})
		grouped := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
		if len(inner) > 0 {
			grouped.AddAttrs(slog.Attr{Key: h.group, Value: slog.GroupValue(inner...)})
		}
		r = grouped
	}
	for _, a := range h.attrs {
		r.AddAttrs(a)
	}
	return h.handler.Handle(ctx, r)
}

func (h *withAttrsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.group != "" {
		return &withAttrsHandler{handler: h, attrs: attrs}
	}
	all := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &withAttrsHandler{handler: h.handler, attrs: all}
}

func (h *withAttrsHandler) WithGroup(name string) slog.Handler {
	return &withAttrsHandler{handler: h, group: name}
}
