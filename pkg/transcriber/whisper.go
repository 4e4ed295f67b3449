// Package transcriber provides Transcriber capability implementations for
// the pipeline core: an on-device whisper.cpp adapter and a scriptable
// mock for callers' own tests.
package transcriber

import (
	"fmt"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/burka/voicsh/internal/logger"
	"github.com/burka/voicsh/pkg/pipeline"
)

// SharedModel loads a whisper.cpp model once and hands out independent
// Contexts from it, so multiple concurrent pipeline instances (e.g. a live
// mic pipeline alongside a file-replay pipeline used in integration tests)
// don't each pay the cost of loading the model from disk.
type SharedModel struct {
	model whisper.Model
	mu    sync.RWMutex
	path  string
	log   *logger.Scoped
}

// LoadSharedModel loads a whisper.cpp model from modelPath.
func LoadSharedModel(modelPath string, log *logger.Logger) (*SharedModel, error) {
	ctxLog := scoped(log)
	ctxLog.Info("loading whisper model from %s", modelPath)

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}

	ctxLog.Info("whisper model loaded")
	return &SharedModel{model: model, path: modelPath, log: ctxLog}, nil
}

// NewContext creates an independent whisper.Context from the shared model.
func (m *SharedModel) NewContext() (whisper.Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ctx, err := m.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create whisper context: %w", err)
	}
	return ctx, nil
}

// Config configures a WhisperTranscriber's context.
type Config struct {
	Language     string // "en", "auto", ...
	Threads      uint
	BeamSize     int
	SpeedUp      bool
	InitialPrompt string
}

// WhisperTranscriber implements pipeline.Transcriber over a whisper.cpp
// context created from a SharedModel. One instance is used serially by one
// TranscriberStage, matching whisper.cpp's non-reentrant Context.
type WhisperTranscriber struct {
	ctx    whisper.Context
	mu     sync.Mutex
	closed bool
	log    *logger.Scoped
}

// NewWhisperTranscriber creates a context from shared and configures it per
// cfg. Context-creation failure here is the caller's to handle — it happens
// before any pipeline is started, not mid-stream, so it never needs the
// Transcribe-time Fatal/Recoverable classification of §4.4.
func NewWhisperTranscriber(shared *SharedModel, cfg Config, log *logger.Logger) (*WhisperTranscriber, error) {
	ctx, err := shared.NewContext()
	if err != nil {
		return nil, err
	}

	if cfg.Language != "" {
		ctx.SetLanguage(cfg.Language)
	} else {
		ctx.SetLanguage("auto")
	}
	if cfg.Threads > 0 {
		ctx.SetThreads(cfg.Threads)
	}
	ctx.SetTranslate(false)
	ctx.SetSpeedUp(cfg.SpeedUp)
	if cfg.BeamSize > 0 {
		ctx.SetBeamSize(cfg.BeamSize)
	}
	ctx.SetTokenTimestamps(true)
	if cfg.InitialPrompt != "" {
		ctx.SetInitialPrompt(cfg.InitialPrompt)
	}

	return &WhisperTranscriber{ctx: ctx, log: scoped(log)}, nil
}

// Transcribe implements pipeline.Transcriber. samples are 16-bit linear PCM
// at sampleRate; whisper.cpp wants float32 in [-1, 1], so they're converted
// once here. A single Process call with a segment callback collects every
// segment's text — the teacher's whisper.go runs Process twice (once
// uncallbacked purely to log stats, again with the callback); that second
// pass is the only one whose result is used, so this keeps just the one.
func (w *WhisperTranscriber) Transcribe(samples []int16, sampleRate int, languageHint string) (pipeline.TranscribeResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return pipeline.TranscribeResult{}, &pipeline.FatalTranscribeError{Cause: fmt.Errorf("model unloaded")}
	}
	if len(samples) == 0 {
		return pipeline.TranscribeResult{}, fmt.Errorf("empty audio samples")
	}

	if languageHint != "" {
		w.ctx.SetLanguage(languageHint)
	}

	floats := pcmToFloat32(samples)

	var segments []string
	err := w.ctx.Process(floats, nil, func(seg whisper.Segment) {
		segments = append(segments, seg.Text)
	}, nil)
	if err != nil {
		return pipeline.TranscribeResult{}, fmt.Errorf("whisper process: %w", err)
	}

	var text string
	for i, seg := range segments {
		if i > 0 && seg != "" {
			text += " "
		}
		text += seg
	}

	return pipeline.TranscribeResult{Text: text}, nil
}

// Close marks the transcriber unusable; any subsequent Transcribe call
// reports Fatal, matching the "model unloaded" condition named in §4.4 and
// §7.
func (w *WhisperTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func pcmToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

func scoped(log *logger.Logger) *logger.Scoped {
	if log == nil {
		log = logger.NewNop()
	}
	return log.With("whisper")
}
