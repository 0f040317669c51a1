// Package diag carries pipeline diagnostics from the processing stages to
// whoever is listening. Emitting never fails: a broken or missing sink must
// not stop a run.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"vendorrecon/internal/logger"
)

// Severity ranks a diagnostic event.
type Severity int

// Severities.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Kind classifies a diagnostic event.
type Kind string

// Event kinds.
const (
	KindProgress         Kind = "progress"
	KindMissingMapping   Kind = "missing_mapping"
	KindSchemaDrift      Kind = "schema_drift"
	KindColumnCollision  Kind = "column_collision"
	KindReportingFailure Kind = "reporting_failure"
	KindIOFailure        Kind = "io_failure"
	KindValidation       Kind = "validation"
	KindUnreviewed       Kind = "unreviewed_mapping"
)

// Event is one diagnostic message with structured context.
type Event struct {
	Fields   map[string]any
	Kind     Kind
	Source   string
	Message  string
	Severity Severity
}

// Sink receives diagnostic events.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) {
	f(ev)
}

type discard struct{}

func (discard) Emit(Event) {}

// Discard is a sink that drops every event.
var Discard Sink = discard{}

// Emit delivers ev to s. A nil sink drops the event and a panicking sink is
// contained.
func Emit(s Sink, ev Event) {
	if s == nil {
		return
	}

	defer func() {
		_ = recover()
	}()

	s.Emit(ev)
}

// Info emits an informational progress event.
func Info(s Sink, source, msg string, fields map[string]any) {
	Emit(s, Event{Severity: SeverityInfo, Kind: KindProgress, Source: source, Message: msg, Fields: fields})
}

// Warn emits a warning of the given kind.
func Warn(s Sink, kind Kind, source, msg string, fields map[string]any) {
	Emit(s, Event{Severity: SeverityWarning, Kind: kind, Source: source, Message: msg, Fields: fields})
}

// Error emits an error of the given kind.
func Error(s Sink, kind Kind, source, msg string, fields map[string]any) {
	Emit(s, Event{Severity: SeverityError, Kind: kind, Source: source, Message: msg, Fields: fields})
}

// Recorder collects events in memory.
type Recorder struct {
	Events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends ev.
func (r *Recorder) Emit(ev Event) {
	r.Events = append(r.Events, ev)
}

// ByKind returns the recorded events of the given kind.
func (r *Recorder) ByKind(kind Kind) []Event {
	var out []Event

	for _, ev := range r.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}

	return out
}

// Has reports whether an event of the given kind was recorded.
func (r *Recorder) Has(kind Kind) bool {
	return len(r.ByKind(kind)) > 0
}

// Count returns the number of events at or above the given severity.
func (r *Recorder) Count(min Severity) int {
	n := 0

	for _, ev := range r.Events {
		if ev.Severity >= min {
			n++
		}
	}

	return n
}

// LogSink writes events through a logger.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a sink backed by log.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Emit logs ev at the level matching its severity.
func (s *LogSink) Emit(ev Event) {
	args := []any{"kind", string(ev.Kind)}
	if ev.Source != "" {
		args = append(args, "source", ev.Source)
	}

	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, k, ev.Fields[k])
	}

	s.log.Log(context.Background(), levelFor(ev.Severity), ev.Message, args...)
}

func levelFor(s Severity) slog.Level {
	switch s {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Tee fans events out to several sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(ev Event) {
		for _, s := range sinks {
			Emit(s, ev)
		}
	})
}

// Format renders ev as a single human-readable line.
func Format(ev Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", ev.Severity, ev.Kind)

	if ev.Source != "" {
		fmt.Fprintf(&b, " (%s)", ev.Source)
	}

	fmt.Fprintf(&b, ": %s", ev.Message)

	return b.String()
}
