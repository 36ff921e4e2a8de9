package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanout sends each record to every output enabled for its level. One
// failing output does not keep the record from the others.
type fanout []slog.Handler

func newFanout(outputs ...slog.Handler) fanout {
	f := make(fanout, 0, len(outputs))
	for _, h := range outputs {
		if h != nil {
			f = append(f, h)
		}
	}
	return f
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// sessionHandler adds the current session and truck ids to each record.
// Both are read at log time, so one logger follows the session across a run.
type sessionHandler struct {
	next    slog.Handler
	session func() string
	truck   func() string
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(sessionAttrs(h.session, h.truck)...)
	return h.next.Handle(ctx, r)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionHandler{next: h.next.WithAttrs(attrs), session: h.session, truck: h.truck}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &sessionHandler{next: h.next.WithGroup(name), session: h.session, truck: h.truck}
}

// sessionAttrs returns the non-empty ids; a nil getter counts as empty.
func sessionAttrs(session, truck func() string) []slog.Attr {
	var attrs []slog.Attr
	if session != nil {
		if id := session(); id != "" {
			attrs = append(attrs, slog.String("session", id))
		}
	}
	if truck != nil {
		if id := truck(); id != "" {
			attrs = append(attrs, slog.String("truck", id))
		}
	}
	return attrs
}
