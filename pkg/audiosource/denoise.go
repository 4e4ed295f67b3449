package audiosource

import (
	"github.com/burka/voicsh/internal/logger"
	"github.com/burka/voicsh/pkg/pipeline"
)

// noiseSuppressor is implemented per build tag: denoise_passthrough.go
// (default) is a no-op, denoise_rnnoise.go (built with -tags rnnoise) runs
// the teacher's RNNoise path. Neither is one of the pipeline's five named
// stages (§4.3) — this is audio-source-side preprocessing applied before
// frames ever reach the VAD stage, so it cannot violate VAD/Chunker
// invariants.
type noiseSuppressor interface {
	processFrame(samples []int16) ([]int16, error)
	close() error
}

// DenoiseSource decorates another AudioSource, running every frame it
// emits through a noise suppressor before forwarding it downstream.
// Adapted from the teacher's RNNoiseProcessor split (rnnoise.go /
// rnnoise_real.go), repurposed here as an AudioSource decorator rather
// than a step wired directly inside the transcription pipeline.
type DenoiseSource struct {
	inner pipeline.AudioSource
	log   *logger.Scoped
}

// NewDenoiseSource wraps inner with noise suppression.
func NewDenoiseSource(inner pipeline.AudioSource, log *logger.Logger) *DenoiseSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &DenoiseSource{inner: inner, log: log.With("denoise-source")}
}

// Start implements pipeline.AudioSource: it runs inner against an internal
// channel, denoises each frame, and forwards it to frames.
func (d *DenoiseSource) Start(frames chan<- pipeline.AudioFrame, reporter pipeline.ErrorReporter) error {
	suppressor := newNoiseSuppressor()
	raw := make(chan pipeline.AudioFrame, 1)

	if err := d.inner.Start(raw, reporter); err != nil {
		return err
	}

	go func() {
		defer close(frames)
		defer suppressor.close()

		for frame := range raw {
			denoised, err := suppressor.processFrame(frame.Samples)
			if err != nil {
				reporter.Report("denoise-source", pipeline.Recoverable, "noise suppression failed, passing frame through: "+err.Error())
				denoised = frame.Samples
			}
			frame.Samples = denoised
			frames <- frame
		}
	}()

	return nil
}

// Stop implements pipeline.AudioSource by delegating to the inner source;
// its own goroutine closes frames once raw drains.
func (d *DenoiseSource) Stop() {
	d.inner.Stop()
}
