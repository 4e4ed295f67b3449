package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// TextSink is the consumed capability of §4.5/§6: handle is called
// synchronously for each TranscribedText, and finish is called exactly
// once, after the input channel closes, to collect any final value.
type TextSink interface {
	Handle(text string) error
	Finish() (string, bool)
	Name() string
}

// Injector is the external text-injection backend an InjectorSink forwards
// to. Its concrete mechanism (compositor portal, virtual keyboard, uinput)
// is out of scope; this is the abstract boundary the core consumes.
type Injector interface {
	Inject(text string) error
}

// InjectorSink forwards each delivered text to an Injector. It is
// side-effect only; Finish always returns ("", false).
type InjectorSink struct {
	injector Injector
}

// NewInjectorSink wraps injector as a TextSink.
func NewInjectorSink(injector Injector) *InjectorSink {
	return &InjectorSink{injector: injector}
}

func (s *InjectorSink) Handle(text string) error {
	return s.injector.Inject(text)
}

func (s *InjectorSink) Finish() (string, bool) { return "", false }
func (s *InjectorSink) Name() string           { return "injector-sink" }

// CollectorSink appends each delivered text to an internal buffer, joined
// by a single space with internal whitespace normalized, and returns the
// accumulated string from Finish.
type CollectorSink struct {
	mu    sync.Mutex
	parts []string
}

// NewCollectorSink returns an empty CollectorSink.
func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

func (s *CollectorSink) Handle(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts = append(s.parts, normalizeWhitespace(text))
	return nil
}

func (s *CollectorSink) Finish() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.parts, " "), true
}

func (s *CollectorSink) Name() string { return "collector-sink" }

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// StandardOutSink writes each delivered text followed by a newline to w.
// Finish always returns ("", false).
type StandardOutSink struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewStandardOutSink wraps w as a TextSink.
func NewStandardOutSink(w io.Writer) *StandardOutSink {
	return &StandardOutSink{w: bufio.NewWriter(w)}
}

func (s *StandardOutSink) Handle(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "%s\n", text); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *StandardOutSink) Finish() (string, bool) { return "", false }
func (s *StandardOutSink) Name() string           { return "stdout-sink" }

// runSinkStage drives the Sink stage (§4.5): it is not a Stage[In, Out]
// like the other three worker stages because it has no output channel —
// its terminal value is the sink's own Finish result, exposed to the
// pipeline owner rather than forwarded downstream.
func runSinkStage(sink TextSink, in <-chan TranscribedText, reporter ErrorReporter, result *string, ok *bool, done chan<- struct{}) {
	defer close(done)

	for msg := range in {
		if err := sink.Handle(msg.Text); err != nil {
			reporter.Report(sink.Name(), Recoverable, fmt.Sprintf("sink handle failed: %v", err))
		}
	}

	value, has := sink.Finish()
	*result = value
	*ok = has
}
