package pipeline

import (
	"math"
	"testing"
)

func sineFrame(amplitude float64, n, sampleRate int) []int16 {
	samples := make([]int16, n)
	const freqHz = 200.0
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		v := amplitude * math.Sin(2*math.Pi*freqHz*t)
		samples[i] = int16(v * 32767)
	}
	return samples
}

func TestVADSilentFrameIsNotSpeech(t *testing.T) {
	v := NewVADStage(VADConfig{ThresholdDB: -20}, nil)
	silence := make([]int16, 640)

	out, _, err := v.Process(AudioFrame{Samples: silence, Sequence: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.IsSpeech {
		t.Error("expected silent frame to be classified as not speech")
	}
	if out.Level != 0 {
		t.Errorf("expected level 0 for silence, got %v", out.Level)
	}
}

func TestVADMinus6dBFSAboveMinus20dBThreshold(t *testing.T) {
	// §8: a -6dBFS tone yields is_speech=true when threshold is -20dBFS.
	v := NewVADStage(VADConfig{ThresholdDB: -20}, nil)
	tone := sineFrame(0.5, 640, 16000) // -6dBFS peak amplitude

	out, _, err := v.Process(AudioFrame{Samples: tone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsSpeech {
		t.Errorf("expected -6dBFS tone to be speech at -20dBFS threshold (level=%v)", out.Level)
	}
}

func TestVADMinus6dBFSBelowZeroDBThreshold(t *testing.T) {
	// §8: the same tone yields is_speech=false when threshold is 0dBFS.
	v := NewVADStage(VADConfig{ThresholdDB: 0}, nil)
	tone := sineFrame(0.5, 640, 16000)

	out, _, err := v.Process(AudioFrame{Samples: tone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.IsSpeech {
		t.Errorf("expected -6dBFS tone to be silence at 0dBFS threshold (level=%v)", out.Level)
	}
}

func TestVADNeverDropsOrCoalescesFrames(t *testing.T) {
	v := NewVADStage(VADConfig{ThresholdDB: -20}, nil)
	for i := 0; i < 100; i++ {
		_, emit, err := v.Process(AudioFrame{Samples: make([]int16, 640), Sequence: uint64(i)})
		if err != nil {
			t.Fatalf("unexpected error at frame %d: %v", i, err)
		}
		if !emit {
			t.Fatalf("VAD dropped frame %d; it must emit 1-for-1", i)
		}
	}
}

func TestVADPreservesFrameOrderAndSequence(t *testing.T) {
	v := NewVADStage(VADConfig{ThresholdDB: -20}, nil)
	for i := uint64(0); i < 10; i++ {
		out, _, _ := v.Process(AudioFrame{Samples: make([]int16, 640), Sequence: i})
		if out.Sequence != i {
			t.Fatalf("sequence %d became %d", i, out.Sequence)
		}
	}
}

func TestVADHysteresisUsesDifferentEnterAndLeaveThresholds(t *testing.T) {
	v := NewVADStage(VADConfig{ThresholdDB: -20, HysteresisMarginDB: 6}, nil)

	belowEnterAboveLeave := sineFrame(0.15, 640, 16000)

	out, _, _ := v.Process(AudioFrame{Samples: belowEnterAboveLeave})
	if out.IsSpeech {
		t.Fatal("expected frame below the entering-speech threshold to stay silent")
	}

	loud := sineFrame(0.5, 640, 16000)
	out, _, _ = v.Process(AudioFrame{Samples: loud})
	if !out.IsSpeech {
		t.Fatal("expected a loud frame to enter speech")
	}

	out, _, _ = v.Process(AudioFrame{Samples: belowEnterAboveLeave})
	if !out.IsSpeech {
		t.Error("expected the same borderline level to stay speech once already in speech (leave threshold is lower)")
	}
}
