// Package observability defines the logging and tracing hooks used by the
// viewer orchestration. Components accept a Logger in their config and
// default to the no-op implementation, so embedding applications decide
// where structured events go.
package observability

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type int64Field struct {
	key string
	val int64
}

func (f int64Field) Key() string        { return f.key }
func (f int64Field) Value() interface{} { return f.val }

type float64Field struct {
	key string
	val float64
}

func (f float64Field) Key() string        { return f.key }
func (f float64Field) Value() interface{} { return f.val }

type boolField struct {
	key string
	val bool
}

func (f boolField) Key() string        { return f.key }
func (f boolField) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field          { return stringField{key, value} }
func Int(key string, value int) Field         { return intField{key, value} }
func Int64(key string, value int64) Field     { return int64Field{key, value} }
func Float64(key string, value float64) Field { return float64Field{key, value} }
func Bool(key string, value bool) Field       { return boolField{key, value} }
func Error(key string, err error) Field       { return errorField{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// Tracer provides distributed tracing hooks for viewer operations.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a tracing span.
type Span interface {
	SetTag(key string, value interface{})
	SetError(err error)
	Finish()
}

type nopTracer struct{}

func (nopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

// NopTracer returns a tracer that does nothing.
func NopTracer() Tracer { return nopTracer{} }

type nopSpan struct{}

func (nopSpan) SetTag(string, interface{}) {}
func (nopSpan) SetError(error)             {}
func (nopSpan) Finish()                    {}

// TextLogger writes one line per event: timestamp, level, message,
// then key=value pairs. Safe for concurrent use.
type TextLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	debug  bool
	fields []Field
}

// NewTextLogger builds a TextLogger on the given writer. Debug events
// are dropped unless debug is true.
func NewTextLogger(out io.Writer, debug bool) *TextLogger {
	return &TextLogger{mu: &sync.Mutex{}, out: out, debug: debug}
}

func (l *TextLogger) Debug(msg string, fields ...Field) {
	if l.debug {
		l.emit("DEBUG", msg, fields)
	}
}
func (l *TextLogger) Info(msg string, fields ...Field)  { l.emit("INFO", msg, fields) }
func (l *TextLogger) Warn(msg string, fields ...Field)  { l.emit("WARN", msg, fields) }
func (l *TextLogger) Error(msg string, fields ...Field) { l.emit("ERROR", msg, fields) }

func (l *TextLogger) With(fields ...Field) Logger {
	child := *l
	child.fields = append(append([]Field(nil), l.fields...), fields...)
	return &child
}

func (l *TextLogger) emit(level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %-5s %s", time.Now().Format(time.RFC3339), level, msg)
	for _, f := range l.fields {
		fmt.Fprintf(l.out, " %s=%v", f.Key(), f.Value())
	}
	for _, f := range fields {
		fmt.Fprintf(l.out, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(l.out)
}

// Standard metric names emitted by the viewer.
const (
	MetricOpenTime       = "viewer.open.duration"
	MetricPageLoadTime   = "viewer.page.load.duration"
	MetricRenderTime     = "viewer.page.render.duration"
	MetricSearchTime     = "viewer.search.duration"
	MetricVisiblePages   = "viewer.visible.count"
	MetricSchedulePasses = "viewer.schedule.passes"
	MetricStaleRenders   = "viewer.render.stale"
)
