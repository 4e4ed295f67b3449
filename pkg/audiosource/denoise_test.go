package audiosource

import (
	"testing"
	"time"

	"github.com/burka/voicsh/pkg/pipeline"
)

type fakeAudioSource struct {
	frames []pipeline.AudioFrame
}

func (f *fakeAudioSource) Start(frames chan<- pipeline.AudioFrame, reporter pipeline.ErrorReporter) error {
	go func() {
		defer close(frames)
		for _, frame := range f.frames {
			frames <- frame
		}
	}()
	return nil
}

func (f *fakeAudioSource) Stop() {}

func TestDenoiseSourcePassesFramesThroughUnchanged(t *testing.T) {
	inner := &fakeAudioSource{frames: []pipeline.AudioFrame{
		{Samples: []int16{1, 2, 3}, Sequence: 0},
		{Samples: []int16{4, 5, 6}, Sequence: 1},
	}}

	source := NewDenoiseSource(inner, nil)
	out := make(chan pipeline.AudioFrame, 4)
	reporter := pipeline.NewCollectingReporter()

	if err := source.Start(out, reporter); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var got []pipeline.AudioFrame
	deadline := time.After(time.Second)
	for len(got) < 2 {
		select {
		case frame := <-out:
			got = append(got, frame)
		case <-deadline:
			t.Fatal("timed out waiting for denoised frames")
		}
	}

	if got[0].Samples[0] != 1 || got[1].Samples[2] != 6 {
		t.Errorf("passthrough suppressor altered samples: %v", got)
	}
}
