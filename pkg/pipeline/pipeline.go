package pipeline

import (
	"time"

	"github.com/burka/voicsh/internal/logger"
)

// stageDone names a worker goroutine's completion channel, for the
// diagnostic report issued if it doesn't exit within joinTimeout.
type stageDone struct {
	name string
	done chan struct{}
}

// Handle is returned by Start (§6) and is the pipeline owner's only handle
// on a running pipeline.
type Handle struct {
	source   AudioSource
	reporter ErrorReporter
	stages   []stageDone

	result   *string
	resultOk *bool
}

// Start wires the five stages into the dataflow of §2 and begins running
// them: AudioSource → VAD → Chunker → Transcriber → Sink, connected by
// bounded channels sized per cfg (defaulted per §6 where zero).
func Start(cfg PipelineConfig, source AudioSource, transcriber Transcriber, sink TextSink, reporter ErrorReporter, log *logger.Logger) (*Handle, error) {
	cfg = cfg.withDefaults()

	frames := make(chan AudioFrame, cfg.AudioVADChannelSize)
	vadOut := make(chan VadFrame, cfg.VADChunkerChannelSize)
	chunkOut := make(chan AudioChunk, cfg.ChunkerTranscriberChannelSize)
	textOut := make(chan TranscribedText, cfg.TranscriberSinkChannelSize)

	vadDone := make(chan struct{})
	chunkerDone := make(chan struct{})
	transcriberDone := make(chan struct{})
	sinkDone := make(chan struct{})

	vadStage := NewVADStage(VADConfig{ThresholdDB: cfg.VADSilenceThresholdDB, HysteresisMarginDB: cfg.VADHysteresisMarginDB}, log)
	chunkerStage := NewChunkerStage(cfg.SampleRate, log)
	transcriberStage := NewTranscriberStage(transcriber, cfg.SampleRate, cfg.LanguageHint, log)

	go runStage[AudioFrame, VadFrame](vadStage, frames, vadOut, reporter, vadDone)
	go runStage[VadFrame, AudioChunk](chunkerStage, vadOut, chunkOut, reporter, chunkerDone)
	go runStage[AudioChunk, TranscribedText](transcriberStage, chunkOut, textOut, reporter, transcriberDone)

	var result string
	var resultOk bool
	go runSinkStage(sink, textOut, reporter, &result, &resultOk, sinkDone)

	if err := source.Start(frames, reporter); err != nil {
		return nil, err
	}

	return &Handle{
		source:   source,
		reporter: reporter,
		result:   &result,
		resultOk: &resultOk,
		stages: []stageDone{
			{name: "vad", done: vadDone},
			{name: "chunker", done: chunkerDone},
			{name: "transcriber", done: transcriberDone},
			{name: "sink", done: sinkDone},
		},
	}, nil
}

// Stop runs the shutdown protocol of §5: it signals the source to stop
// (which closes its output channel, cascading stage-by-stage), joins every
// worker with a bounded timeout, and returns whatever the sink accumulated.
// Workers that don't exit within the timeout are abandoned with a
// diagnostic report rather than blocking the caller indefinitely.
func (h *Handle) Stop() (string, bool) {
	h.source.Stop()

	for _, s := range h.stages {
		select {
		case <-s.done:
		case <-time.After(joinTimeout):
			h.reporter.Report(s.name, Recoverable, "stage did not exit within shutdown timeout; abandoning")
		}
	}

	return *h.result, *h.resultOk
}

// Wait blocks until the pipeline has drained naturally — i.e. until the
// Sink stage has called TextSink.Finish — without imposing the bounded
// timeout Stop applies. Callers that let the source close on its own (a
// file finishing, a mic device closing) use this to observe completion;
// Stop remains the way to force an early, possibly incomplete shutdown.
func (h *Handle) Wait() {
	<-h.stages[len(h.stages)-1].done
}
