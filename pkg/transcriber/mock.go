package transcriber

import (
	"sync"

	"github.com/burka/voicsh/pkg/pipeline"
)

// Mock is a scriptable pipeline.Transcriber for callers' own tests: it
// returns Texts in order, optionally failing fatally at FailAt.
type Mock struct {
	mu    sync.Mutex
	Texts []string
	// FailAt is the 0-based call index at which Transcribe returns a
	// FatalTranscribeError; negative disables it.
	FailAt int
	calls  int
}

// NewMock returns a Mock that yields texts in order and never fails.
func NewMock(texts ...string) *Mock {
	return &Mock{Texts: texts, FailAt: -1}
}

func (m *Mock) Transcribe(samples []int16, sampleRate int, languageHint string) (pipeline.TranscribeResult, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.mu.Unlock()

	if m.FailAt >= 0 && idx == m.FailAt {
		return pipeline.TranscribeResult{}, &pipeline.FatalTranscribeError{Cause: errUnavailable}
	}
	if idx < len(m.Texts) {
		return pipeline.TranscribeResult{Text: m.Texts[idx]}, nil
	}
	return pipeline.TranscribeResult{}, nil
}

// Calls returns how many times Transcribe has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockUnavailableError struct{}

func (mockUnavailableError) Error() string { return "mock transcriber unavailable" }

var errUnavailable = mockUnavailableError{}
