package pipeline

import (
	"sync"

	"github.com/burka/voicsh/internal/logger"
)

// ErrorKind classifies a report passed to an ErrorReporter.
type ErrorKind int

const (
	// Recoverable affects a single in-flight message; the stage drops it,
	// reports it, and continues with the next one.
	Recoverable ErrorKind = iota
	// Fatal means the stage cannot make further progress; the runner
	// reports it, calls shutdown, closes its output, and exits.
	Fatal
)

func (k ErrorKind) String() string {
	if k == Fatal {
		return "fatal"
	}
	return "recoverable"
}

// StageError is returned by process() to signal a Recoverable or Fatal
// condition. A nil StageError means success, whether or not an output is
// emitted.
type StageError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StageError) Unwrap() error { return e.Cause }

// recoverable builds a Recoverable StageError.
func recoverable(message string, cause error) *StageError {
	return &StageError{Kind: Recoverable, Message: message, Cause: cause}
}

// fatal builds a Fatal StageError.
func fatal(message string, cause error) *StageError {
	return &StageError{Kind: Fatal, Message: message, Cause: cause}
}

// ErrorReporter is the side-channel capability every runner reports through.
// Recoverable errors never ride the data channels; this is the only path
// by which a stage communicates trouble to the pipeline owner.
type ErrorReporter interface {
	Report(stageName string, kind ErrorKind, message string)
}

// LogReporter is the default ErrorReporter: it writes one line per report
// to a structured logger. Safe for concurrent use, as required by §5.
type LogReporter struct {
	log *logger.Scoped
}

// NewLogReporter wraps log in an ErrorReporter. The Logger itself already
// serializes writes, so no additional locking is needed here.
func NewLogReporter(log *logger.Logger) *LogReporter {
	return &LogReporter{log: log.With("pipeline")}
}

func (r *LogReporter) Report(stageName string, kind ErrorKind, message string) {
	fields := map[string]interface{}{"stage": stageName, "kind": kind.String()}
	if kind == Fatal {
		r.log.ErrorFields(message, fields)
		return
	}
	r.log.WarnFields(message, fields)
}

// Report is one recorded call to an ErrorReporter.
type Report struct {
	Stage   string
	Kind    ErrorKind
	Message string
}

// CollectingReporter is the test double required by §4.1: it accumulates
// every report instead of writing it anywhere, so tests can assert on the
// exact sequence of recoverable/fatal conditions a run produced.
type CollectingReporter struct {
	mu      sync.Mutex
	reports []Report
}

// NewCollectingReporter returns an empty CollectingReporter.
func NewCollectingReporter() *CollectingReporter {
	return &CollectingReporter{}
}

func (r *CollectingReporter) Report(stageName string, kind ErrorKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Stage: stageName, Kind: kind, Message: message})
}

// Reports returns a snapshot of every report accumulated so far.
func (r *CollectingReporter) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// FatalReports returns only the fatal-kind reports, in order.
func (r *CollectingReporter) FatalReports() []Report {
	var out []Report
	for _, rep := range r.Reports() {
		if rep.Kind == Fatal {
			out = append(out, rep)
		}
	}
	return out
}
