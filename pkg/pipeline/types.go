// Package pipeline implements the continuous transcription pipeline: a
// staged, bounded-channel dataflow that turns captured audio frames into
// delivered text. Stages are connected only by channels; no stage shares
// mutable state with another.
package pipeline

import "time"

// AudioFrame is one producer-delivered slice of 16-bit linear PCM, mono, at
// the pipeline's configured sample rate.
type AudioFrame struct {
	Samples   []int16
	Timestamp time.Time
	Sequence  uint64
}

// VadFrame is an AudioFrame carrying its voice-activity classification.
type VadFrame struct {
	Samples   []int16
	Timestamp time.Time
	Sequence  uint64
	IsSpeech  bool
	Level     float64 // RMS, normalized to [0, 1]
}

// AudioChunk is a contiguous speech region assembled by the Chunker, ready
// for transcription.
type AudioChunk struct {
	Samples    []int16
	DurationMs int
	Sequence   uint64
	Timestamp  time.Time
}

// TranscribedText is one transcription result, ready for the sink.
type TranscribedText struct {
	Text      string
	Timestamp time.Time
}

func durationMs(numSamples, sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	return numSamples * 1000 / sampleRate
}
