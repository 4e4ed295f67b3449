package pipeline

import (
	"math"
	"time"
)

// AudioSource is the consumed capability of §6: it pushes AudioFrames into
// the supplied channel at real time and guarantees frame duration, sample
// rate, mono-ness, and sequence-number monotonicity. A source that fails
// to deliver frames reports the failure and closes the channel.
type AudioSource interface {
	// Start begins delivering frames into frames, using reporter for any
	// failures, and returns once the source has begun (or failed to
	// begin) — delivery itself continues on the source's own goroutine
	// until Stop is called or the source fails.
	Start(frames chan<- AudioFrame, reporter ErrorReporter) error
	// Stop requests the source to stop producing and close frames. It
	// does not block for delivery to finish.
	Stop()
}

// MockSource is a scriptable AudioSource for tests: it replays a fixed
// sequence of speech/silence segments as synthetic PCM, then closes its
// output channel, mirroring the "mock source" the §8 end-to-end scenarios
// are specified against.
type MockSource struct {
	sampleRate      int
	frameDurationMs int
	segments        []MockSegment

	stop chan struct{}
}

// MockSegment describes one run of consecutive frames of the same kind.
type MockSegment struct {
	Speech bool
	Frames int
}

// NewMockSource builds a MockSource that will emit the given segments, in
// order, once Start is called.
func NewMockSource(sampleRate, frameDurationMs int, segments []MockSegment) *MockSource {
	return &MockSource{
		sampleRate:      sampleRate,
		frameDurationMs: frameDurationMs,
		segments:        segments,
		stop:            make(chan struct{}),
	}
}

// Start emits every configured frame in order, synchronously on a new
// goroutine, and closes frames when done or when Stop is called.
func (m *MockSource) Start(frames chan<- AudioFrame, reporter ErrorReporter) error {
	go func() {
		defer close(frames)
		samplesPerFrame := m.sampleRate * m.frameDurationMs / 1000
		var seq uint64
		now := time.Now()

		for _, seg := range m.segments {
			for i := 0; i < seg.Frames; i++ {
				select {
				case <-m.stop:
					return
				default:
				}

				samples := make([]int16, samplesPerFrame)
				if seg.Speech {
					fillTone(samples, m.sampleRate)
				}

				frame := AudioFrame{
					Samples:   samples,
					Timestamp: now.Add(time.Duration(seq) * time.Duration(m.frameDurationMs) * time.Millisecond),
					Sequence:  seq,
				}
				seq++

				select {
				case frames <- frame:
				case <-m.stop:
					return
				}
			}
		}
	}()
	return nil
}

// Stop requests the replay goroutine to exit early.
func (m *MockSource) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

// fillTone fills samples with a half-scale (-6dBFS) 200Hz sine, comfortably above
// any sane VAD silence threshold, to stand in for "speech" in tests.
func fillTone(samples []int16, sampleRate int) {
	const freqHz = 200.0
	const amplitude = 0.5 // -6dBFS, matching §8's VAD test fixture
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		v := amplitude * math.Sin(2*math.Pi*freqHz*t)
		samples[i] = int16(v * 32767)
	}
}
