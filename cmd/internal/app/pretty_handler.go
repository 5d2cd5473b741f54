package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// msgWidth pads the message column so attributes line up in a terminal.
const msgWidth = 22

// prettyHandler renders one aligned line per record for local development:
//
//	15:04:05.000 WARN  http.request          method=POST path=/api/v1/users/login status=401
//
// Attributes added through WithAttrs are rendered once, up front.
type prettyHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	source bool
	color  bool

	prefix string // open groups, dot-joined, with trailing dot
	pre    string // pre-rendered WithAttrs output
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{out: w, mu: &sync.Mutex{}, level: slog.LevelInfo, color: color}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.source = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(paint(ts.Format("15:04:05.000"), ansiDim, h.color))
	b.WriteByte(' ')
	b.WriteString(levelLabel(r.Level, h.color))
	b.WriteByte(' ')

	msg := paint(r.Message, ansiBright, h.color)
	b.WriteString(msg)
	if pad := msgWidth - visualLen(msg); pad > 0 && (r.NumAttrs() > 0 || h.pre != "") {
		b.WriteString(strings.Repeat(" ", pad))
	}

	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, a, h.prefix)
		return true
	})

	if h.source && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			b.WriteString(paint(fmt.Sprintf(" @%s:%d", filepath.Base(frame.File), frame.Line), ansiDim, h.color))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.pre)
	for _, a := range attrs {
		h.writeAttr(&b, a, h.prefix)
	}
	cp := *h
	cp.pre = b.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, a slog.Attr, prefix string) {
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)

	if a.Value.Kind() == slog.KindGroup {
		if key != "" {
			prefix += key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, ga, prefix)
		}
		return
	}
	if key == "" {
		return
	}

	full := prefix + key
	name, val := full, ""
	if f, ok := prettyFields[full]; ok {
		if f.name != "" {
			name = f.name
		}
		val = f.render(a.Value, h.color)
	} else {
		val = quoteIfNeeded(valueToString(a.Value))
	}

	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(val)
}

// prettyField renames and styles a well-known attribute.
type prettyField struct {
	name   string
	render func(v slog.Value, color bool) string
}

var prettyFields = map[string]prettyField{
	"method": {render: func(v slog.Value, color bool) string {
		return colorizeHTTPMethod(strings.ToUpper(strings.TrimSpace(v.String())), color)
	}},
	"path": {render: func(v slog.Value, color bool) string {
		return paint(quoteIfNeeded(strings.TrimSpace(v.String())), ansiCyan, color)
	}},
	"status": {render: func(v slog.Value, color bool) string {
		if n, ok := valueToInt64(v); ok {
			return colorizeStatusCode(int(n), color)
		}
		return quoteIfNeeded(v.String())
	}},
	"status_class": {name: "class", render: func(v slog.Value, color bool) string {
		return colorizeStatusClass(strings.TrimSpace(v.String()), color)
	}},
	"duration_ms": {name: "took", render: func(v slog.Value, color bool) string {
		if n, ok := valueToInt64(v); ok {
			return colorizeDurationMS(n, color)
		}
		return quoteIfNeeded(v.String())
	}},
	"result":     {render: renderResult},
	"outcome":    {render: renderResult},
	"request_id": {name: "req", render: renderDim},
	"user_id":    {render: renderDim},
}

func renderResult(v slog.Value, color bool) string {
	return colorizeResult(strings.ToLower(strings.TrimSpace(v.String())), color)
}

func renderDim(v slog.Value, color bool) string {
	return paint(quoteIfNeeded(v.String()), ansiDim, color)
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		// Int64, Uint64, Bool and Duration already print the way we want.
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// levelLabel returns a five-column level name.
func levelLabel(level slog.Level, color bool) string {
	switch {
	case level >= slog.LevelError:
		return paint("ERROR", ansiRed, color)
	case level >= slog.LevelWarn:
		return paint("WARN ", ansiYellow, color)
	case level >= slog.LevelInfo:
		return paint("INFO ", ansiBlue, color)
	default:
		return paint("DEBUG", ansiMagenta, color)
	}
}
