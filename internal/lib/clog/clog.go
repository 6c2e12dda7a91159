// Package clog provides a colored slog handler for local development.
package clog

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/fatih/color"
)

type Handler struct {
	l     *log.Logger
	level slog.Level
	attrs []slog.Attr
}

func NewHandler(out io.Writer, level slog.Level) *Handler {
	return &Handler{
		l:     log.New(out, "", 0),
		level: level,
	}
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.HiBlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	attrsStr := ""
	for _, a := range h.attrs {
		attrsStr += color.GreenString(a.Key) + "=" + fmt.Sprint(a.Value.Any()) + " "
	}
	r.Attrs(func(a slog.Attr) bool {
		attrsStr += color.GreenString(a.Key) + "=" + fmt.Sprint(a.Value.Any()) + " "
		return true
	})

	h.l.Println(
		r.Time.Format("15:04:05.000"),
		level,
		r.Message,
		attrsStr,
	)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *Handler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}
