package pipeline

import (
	"time"

	"github.com/burka/voicsh/internal/logger"
)

// RequiredGapMs is the gap-shrinking policy at the heart of the adaptive
// chunker (§4.3): a pure, monotonically non-increasing step function of
// the speech duration currently buffered. No I/O, no global state — it is
// unit-testable directly against the table in the spec, independent of any
// stage runtime, channel, or clock.
func RequiredGapMs(speechDurationMs int) int {
	switch {
	case speechDurationMs < 2500:
		return 400
	case speechDurationMs < 3000:
		return 250
	case speechDurationMs < 3500:
		return 150
	case speechDurationMs < 4500:
		return 100
	default:
		return 80
	}
}

type chunkerState int

const (
	stateIdle chunkerState = iota
	stateInSpeech
	stateInTrailingSilence
)

// preRollCapMs bounds the optional pre-speech ring buffer at 200ms, per
// §4.3's implementer-choice clause. Adapted from the teacher's
// AudioAccumulator append/check/flush shape, repurposed here to retain
// onset audio instead of accumulating toward a transcription flush.
const preRollCapMs = 200

type preRollFrame struct {
	samples   []int16
	timestamp time.Time
	durMs     int
}

// ChunkerStage segments the VadFrame stream into AudioChunks per the §4.3
// state machine and gap-shrinking policy.
type ChunkerStage struct {
	sampleRate int

	state chunkerState

	buffer        []int16
	bufferStartAt time.Time
	speechMs      int
	trailingMs    int

	preRoll    []preRollFrame
	preRollMs  int
	sequence   uint64

	log *logger.Scoped
}

// NewChunkerStage builds a ChunkerStage for the given sample rate.
func NewChunkerStage(sampleRate int, log *logger.Logger) *ChunkerStage {
	return &ChunkerStage{
		sampleRate: sampleRate,
		log:        scopedLogger(log, "chunker"),
	}
}

func (c *ChunkerStage) Name() string { return "chunker" }

// Process implements Stage. See §4.3 for the full transition table.
func (c *ChunkerStage) Process(in VadFrame) (AudioChunk, bool, *StageError) {
	frameMs := durationMs(len(in.Samples), c.sampleRate)

	switch c.state {
	case stateIdle:
		if !in.IsSpeech {
			c.pushPreRoll(in, frameMs)
			return AudioChunk{}, false, nil
		}
		if len(c.preRoll) > 0 {
			c.spliceInPreRoll()
		} else {
			c.bufferStartAt = in.Timestamp
		}
		c.appendSpeech(in, frameMs)
		c.state = stateInSpeech
		return AudioChunk{}, false, nil

	case stateInSpeech:
		if in.IsSpeech {
			c.appendSpeech(in, frameMs)
			return AudioChunk{}, false, nil
		}
		c.appendSilence(in, frameMs)
		c.trailingMs = frameMs
		c.state = stateInTrailingSilence
		return AudioChunk{}, false, nil

	case stateInTrailingSilence:
		if in.IsSpeech {
			c.appendSpeech(in, frameMs)
			c.trailingMs = 0
			c.state = stateInSpeech
			return AudioChunk{}, false, nil
		}
		c.appendSilence(in, frameMs)
		c.trailingMs += frameMs
		if c.trailingMs >= RequiredGapMs(c.speechMs) {
			chunk := c.emit()
			return chunk, true, nil
		}
		return AudioChunk{}, false, nil
	}

	return AudioChunk{}, false, nil
}

// Shutdown flushes any buffered speech as a final chunk (§4.3, §5 step 3).
func (c *ChunkerStage) Shutdown() (AudioChunk, bool) {
	if c.speechMs == 0 {
		return AudioChunk{}, false
	}
	return c.emit(), true
}

func (c *ChunkerStage) appendSpeech(in VadFrame, frameMs int) {
	c.buffer = append(c.buffer, in.Samples...)
	c.speechMs += frameMs
}

func (c *ChunkerStage) appendSilence(in VadFrame, frameMs int) {
	c.buffer = append(c.buffer, in.Samples...)
}

func (c *ChunkerStage) pushPreRoll(in VadFrame, frameMs int) {
	c.preRoll = append(c.preRoll, preRollFrame{samples: in.Samples, timestamp: in.Timestamp, durMs: frameMs})
	c.preRollMs += frameMs
	for c.preRollMs > preRollCapMs && len(c.preRoll) > 0 {
		c.preRollMs -= c.preRoll[0].durMs
		c.preRoll = c.preRoll[1:]
	}
}

// spliceInPreRoll moves any buffered pre-speech audio to the front of the
// chunk buffer at the moment speech starts, so onsets aren't clipped.
func (c *ChunkerStage) spliceInPreRoll() {
	if len(c.preRoll) == 0 {
		return
	}
	c.bufferStartAt = c.preRoll[0].timestamp
	for _, f := range c.preRoll {
		c.buffer = append(c.buffer, f.samples...)
	}
	c.preRoll = nil
	c.preRollMs = 0
}

// emit assembles the buffered samples into an AudioChunk and resets state
// to Idle. Trailing silence buffered at the moment of emission is retained
// in the chunk; it is not carried forward.
func (c *ChunkerStage) emit() AudioChunk {
	chunk := AudioChunk{
		Samples:    c.buffer,
		DurationMs: durationMs(len(c.buffer), c.sampleRate),
		Sequence:   c.sequence,
		Timestamp:  c.bufferStartAt,
	}
	c.sequence++
	c.buffer = nil
	c.speechMs = 0
	c.trailingMs = 0
	c.state = stateIdle
	return chunk
}
