package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/burka/voicsh/internal/logger"
)

// TranscribeResult is what a Transcriber capability returns for one chunk.
type TranscribeResult struct {
	Text       string
	Confidence float64
}

// Transcriber is the consumed capability of §4.4/§6: given samples at a
// sample rate and an optional language hint, produce text. It may be slow
// (hundreds of milliseconds to seconds); invocations from one stage
// instance are always serial, so the capability itself need not be
// reentrant.
type Transcriber interface {
	Transcribe(samples []int16, sampleRate int, languageHint string) (TranscribeResult, error)
}

// FatalTranscribeError signals a condition the Transcriber capability
// cannot recover from on its own — model unloaded, device lost. Returning
// one (directly or wrapped) from Transcribe propagates as Fatal; any other
// error is Recoverable (§4.4).
type FatalTranscribeError struct {
	Cause error
}

func (e *FatalTranscribeError) Error() string {
	return fmt.Sprintf("transcriber unavailable: %v", e.Cause)
}

func (e *FatalTranscribeError) Unwrap() error { return e.Cause }

// TranscriberStage consumes AudioChunks and emits TranscribedText,
// preserving order end-to-end as §4.4 requires — a single instance calls
// Transcribe serially, so output order always matches input order.
type TranscriberStage struct {
	transcriber  Transcriber
	sampleRate   int
	languageHint string
	log          *logger.Scoped
}

// NewTranscriberStage builds a TranscriberStage wrapping transcriber.
func NewTranscriberStage(transcriber Transcriber, sampleRate int, languageHint string, log *logger.Logger) *TranscriberStage {
	return &TranscriberStage{
		transcriber:  transcriber,
		sampleRate:   sampleRate,
		languageHint: languageHint,
		log:          scopedLogger(log, "transcriber"),
	}
}

func (t *TranscriberStage) Name() string { return "transcriber" }

// Process implements Stage. Empty or whitespace-only results are
// suppressed per §4.4: the sink is never invoked for them.
func (t *TranscriberStage) Process(in AudioChunk) (TranscribedText, bool, *StageError) {
	result, err := t.transcriber.Transcribe(in.Samples, t.sampleRate, t.languageHint)
	if err != nil {
		var fatalErr *FatalTranscribeError
		if errors.As(err, &fatalErr) {
			return TranscribedText{}, false, fatal("transcription unavailable", err)
		}
		return TranscribedText{}, false, recoverable("transcription failed", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return TranscribedText{}, false, nil
	}

	return TranscribedText{Text: text, Timestamp: in.Timestamp}, true, nil
}

// Shutdown emits nothing; the Transcriber stage holds no buffered state
// across chunks.
func (t *TranscriberStage) Shutdown() (TranscribedText, bool) { return TranscribedText{}, false }
