package pipeline

import (
	"testing"
	"time"
)

func TestRequiredGapMsTable(t *testing.T) {
	cases := []struct {
		speechMs int
		wantGap  int
	}{
		{0, 400},
		{2499, 400},
		{2500, 250},
		{2999, 250},
		{3000, 150},
		{3499, 150},
		{3500, 100},
		{4499, 100},
		{4500, 80},
		{10000, 80},
	}

	for _, c := range cases {
		got := RequiredGapMs(c.speechMs)
		if got != c.wantGap {
			t.Errorf("RequiredGapMs(%d) = %d, want %d", c.speechMs, got, c.wantGap)
		}
	}
}

// vadFrame builds a VadFrame of frameMs duration at 16kHz classified per
// isSpeech, with non-zero samples for speech so a chunk's byte length is
// checkable.
func vadFrame(seq uint64, isSpeech bool, frameMs, sampleRate int) VadFrame {
	n := sampleRate * frameMs / 1000
	samples := make([]int16, n)
	if isSpeech {
		for i := range samples {
			samples[i] = 1000
		}
	}
	return VadFrame{
		Samples:   samples,
		Timestamp: time.Unix(0, int64(seq)*int64(frameMs)*int64(time.Millisecond)),
		Sequence:  seq,
		IsSpeech:  isSpeech,
	}
}

// driveChunker feeds a speech run of speechFrames frames followed by a
// silence run of silenceFrames frames through a fresh ChunkerStage, and
// returns whether a chunk was emitted along with the last emitted chunk.
func driveChunker(t *testing.T, sampleRate, frameMs, speechFrames, silenceFrames int) (emitted bool, chunk AudioChunk) {
	t.Helper()
	c := NewChunkerStage(sampleRate, nil)

	var seq uint64
	feed := func(isSpeech bool, n int) {
		for i := 0; i < n; i++ {
			out, emit, err := c.Process(vadFrame(seq, isSpeech, frameMs, sampleRate))
			seq++
			if err != nil {
				t.Fatalf("unexpected stage error: %v", err)
			}
			if emit {
				emitted = true
				chunk = out
			}
		}
	}

	feed(true, speechFrames)
	feed(false, silenceFrames)
	return emitted, chunk
}

func TestChunkerGapTableRows(t *testing.T) {
	const sampleRate = 16000
	const frameMs = 40

	cases := []struct {
		name         string
		speechFrames int
		silenceMs    int // rounded down to whole frames
	}{
		{"below-2500-short-gap", 50, 360},  // S=2000ms, gap 360 < 400 required
		{"below-2500-long-gap", 50, 440},   // S=2000ms, gap 440 >= 400 required
		{"2500-to-3000-short", 65, 200},    // S=2600ms, gap 200 < 250 required
		{"2500-to-3000-long", 65, 280},     // S=2600ms, gap 280 >= 250 required
		{"floor-short", 120, 40},           // S=4800ms, gap 40 < 80 required
		{"floor-long", 120, 80},            // S=4800ms, gap 80 >= 80 required
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			silenceFrames := c.silenceMs / frameMs
			requiredMs := RequiredGapMs(c.speechFrames * frameMs)
			wantEmit := c.silenceMs >= requiredMs

			emitted, chunk := driveChunker(t, sampleRate, frameMs, c.speechFrames, silenceFrames)
			if emitted != wantEmit {
				t.Fatalf("emitted = %v, want %v (speechMs=%d silenceMs=%d required=%d)",
					emitted, wantEmit, c.speechFrames*frameMs, c.silenceMs, requiredMs)
			}
			if wantEmit {
				// The chunk is cut on the silence frame that meets the
				// required gap; silence fed after that is not part of it.
				gapFrames := (requiredMs + frameMs - 1) / frameMs
				wantSamples := (c.speechFrames + gapFrames) * sampleRate * frameMs / 1000
				if len(chunk.Samples) != wantSamples {
					t.Errorf("chunk has %d samples, want %d", len(chunk.Samples), wantSamples)
				}
			}
		})
	}
}

func TestChunkerShutdownFlushesBufferedSpeech(t *testing.T) {
	c := NewChunkerStage(16000, nil)
	var seq uint64
	for i := 0; i < 10; i++ {
		if _, _, err := c.Process(vadFrame(seq, true, 40, 16000)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seq++
	}

	chunk, ok := c.Shutdown()
	if !ok {
		t.Fatal("expected shutdown to flush buffered speech")
	}
	wantSamples := 10 * 16000 * 40 / 1000
	if len(chunk.Samples) != wantSamples {
		t.Errorf("flushed chunk has %d samples, want %d", len(chunk.Samples), wantSamples)
	}
}

func TestChunkerShutdownEmitsNothingWhenIdle(t *testing.T) {
	c := NewChunkerStage(16000, nil)
	if _, ok := c.Shutdown(); ok {
		t.Fatal("expected no emission from an idle chunker")
	}
}

func TestChunkerSequenceNumbersIncreaseFromZero(t *testing.T) {
	c := NewChunkerStage(16000, nil)
	var seq uint64
	var sequences []uint64

	emitUtterance := func() {
		for i := 0; i < 50; i++ {
			c.Process(vadFrame(seq, true, 40, 16000))
			seq++
		}
		for i := 0; i < 20; i++ {
			out, emit, _ := c.Process(vadFrame(seq, false, 40, 16000))
			seq++
			if emit {
				sequences = append(sequences, out.Sequence)
			}
		}
	}

	emitUtterance()
	emitUtterance()
	emitUtterance()

	for i, s := range sequences {
		if s != uint64(i) {
			t.Errorf("sequence[%d] = %d, want %d", i, s, i)
		}
	}
}

func TestChunkerGapShrinkingBoundaryScenario(t *testing.T) {
	// §8 scenario 3: 120 speech frames (4800ms, S>=4500 => floor 80ms)
	// followed by exactly 2 silence frames (80ms) — chunk must emit at
	// the moment the second silent frame is processed.
	c := NewChunkerStage(16000, nil)
	var seq uint64
	for i := 0; i < 120; i++ {
		_, emit, _ := c.Process(vadFrame(seq, true, 40, 16000))
		seq++
		if emit {
			t.Fatalf("unexpected emission during speech run at frame %d", i)
		}
	}

	_, emit, _ := c.Process(vadFrame(seq, false, 40, 16000))
	seq++
	if emit {
		t.Fatal("unexpected emission after only 1 of 2 required silence frames")
	}

	out, emit, _ := c.Process(vadFrame(seq, false, 40, 16000))
	if !emit {
		t.Fatal("expected emission on the second silence frame")
	}
	wantSamples := 122 * 16000 * 40 / 1000
	if len(out.Samples) != wantSamples {
		t.Errorf("chunk has %d samples, want %d", len(out.Samples), wantSamples)
	}
}
