package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
)

const loggerKey = "logger"

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiAmber = "\033[33m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
)

//nolint:gochecknoglobals
var levelColors = map[slog.Level]string{
	slog.LevelDebug: ansiCyan,
	slog.LevelInfo:  ansiGreen,
	slog.LevelWarn:  ansiAmber,
	slog.LevelError: ansiRed,
}

// ConsoleHandler is a slog.Handler producing colored single-line records
// followed by the calling function, meant for terminals and test output.
type ConsoleHandler struct {
	Output io.Writer
	Level  slog.Leveler
	// PkgLevels maps logger name prefixes to minimum levels. The longest
	// matching prefix wins; the empty key applies to every logger.
	PkgLevels map[string]slog.Level

	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*ConsoleHandler)(nil)

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if len(h.PkgLevels) > 0 {
		// Per-logger filtering happens in Handle once the name is known.
		return true
	}

	return h.Level.Level() <= level
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := slices.Clone(h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)

		return true
	})

	if r.Level < h.minLevel(attrs) {
		return nil
	}

	var b strings.Builder

	b.WriteString(ansiGray + r.Time.Format("15:04:05.000000") + ansiReset)
	b.WriteString(" " + levelColors[r.Level] + "[" + r.Level.String() + "]" + ansiReset)
	b.WriteString(" " + r.Message)

	if len(attrs) > 0 {
		prefix := ""
		if len(h.groups) > 0 {
			prefix = strings.Join(h.groups, ".") + "."
		}

		b.WriteString(" " + ansiGray + "|" + ansiReset)
		writeAttrs(&b, prefix, attrs)
	}

	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fn := frame.Function[strings.LastIndex(frame.Function, "/")+1:]
		fmt.Fprintf(&b, "\n-> %s%s() in %s:%d%s", ansiGray, fn, frame.File, frame.Line, ansiReset)
	}

	b.WriteString("\n")

	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}

	_, err := io.WriteString(h.Output, b.String())

	return err //nolint:wrapcheck
}

func (h *ConsoleHandler) minLevel(attrs []slog.Attr) slog.Level {
	level := h.Level.Level()

	if len(h.PkgLevels) == 0 {
		return level
	}

	var name string

	for _, a := range attrs {
		if a.Key == loggerKey {
			name = a.Value.String()

			break
		}
	}

	best := -1

	for prefix, l := range h.PkgLevels {
		if prefix != "" && name != prefix && !strings.HasPrefix(name, prefix+".") {
			continue
		}

		if len(prefix) > best {
			best = len(prefix)
			level = l
		}
	}

	return level
}

func writeAttrs(b *strings.Builder, prefix string, attrs []slog.Attr) {
	for _, a := range attrs {
		if a.Value.Kind() == slog.KindGroup {
			writeAttrs(b, prefix+a.Key+".", a.Value.Group())

			continue
		}

		b.WriteString(" " + prefix + a.Key + "=" + ansiGray + a.Value.String() + ansiReset)
	}
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) Handler {
	clone := h.clone()
	clone.attrs = append(slices.Clip(clone.attrs), attrs...)

	return clone
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) Handler {
	clone := h.clone()
	clone.groups = append(slices.Clip(clone.groups), name)

	return clone
}

func (h *ConsoleHandler) clone() *ConsoleHandler {
	mu := h.mu
	if mu == nil {
		mu = new(sync.Mutex)
	}

	return &ConsoleHandler{
		Output:    h.Output,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		mu:        mu,
		attrs:     h.attrs,
		groups:    h.groups,
	}
}
