package audiosource

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/burka/voicsh/internal/logger"
	"github.com/burka/voicsh/pkg/pipeline"
)

// FileSource replays a 16-bit mono PCM WAV file as AudioFrames, for
// deterministic integration tests and offline/batch replay. The WAV
// reader is the mirror of the teacher's saveWAV writer in
// transcription/pipeline.go — same RIFF/fmt/data subchunk layout, read
// instead of written.
type FileSource struct {
	path            string
	frameDurationMs int
	realTime        bool
	log             *logger.Scoped

	mu   sync.Mutex
	stop chan struct{}
}

// NewFileSource builds a FileSource that will replay path. When realTime
// is false (the common case for tests), frames are emitted as fast as the
// downstream pipeline can consume them rather than paced to wall-clock
// audio duration.
func NewFileSource(path string, frameDurationMs int, realTime bool, log *logger.Logger) *FileSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &FileSource{
		path:            path,
		frameDurationMs: frameDurationMs,
		realTime:        realTime,
		log:             log.With("file-source"),
		stop:            make(chan struct{}),
	}
}

// wavHeader is the subset of a canonical PCM WAV file this reader needs.
type wavHeader struct {
	SampleRate int
	Channels   int
	BitsPerSample int
}

func readWAV(r io.Reader) (wavHeader, []byte, error) {
	var riff [4]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil || string(riff[:]) != "RIFF" {
		return wavHeader{}, nil, fmt.Errorf("not a RIFF file")
	}
	var fileSize uint32
	binary.Read(r, binary.LittleEndian, &fileSize)

	var wave [4]byte
	if _, err := io.ReadFull(r, wave[:]); err != nil || string(wave[:]) != "WAVE" {
		return wavHeader{}, nil, fmt.Errorf("not a WAVE file")
	}

	var header wavHeader
	var data []byte

	for {
		var chunkID [4]byte
		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			break
		}
		var chunkSize uint32
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			break
		}

		switch string(chunkID[:]) {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return wavHeader{}, nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			header.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			header.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			header.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			data = make([]byte, chunkSize)
			if _, err := io.ReadFull(r, data); err != nil {
				return wavHeader{}, nil, fmt.Errorf("read data chunk: %w", err)
			}
		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return wavHeader{}, nil, fmt.Errorf("skip chunk %q: %w", chunkID, err)
			}
		}
	}

	if header.SampleRate == 0 || data == nil {
		return wavHeader{}, nil, fmt.Errorf("incomplete WAV file (missing fmt or data chunk)")
	}
	return header, data, nil
}

// Start implements pipeline.AudioSource: it opens f.path as a WAV file and
// replays it as AudioFrames of frameDurationMs each.
func (f *FileSource) Start(frames chan<- pipeline.AudioFrame, reporter pipeline.ErrorReporter) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}

	header, data, err := readWAV(bufio.NewReader(file))
	file.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", f.path, err)
	}
	if header.BitsPerSample != 16 || header.Channels != 1 {
		return fmt.Errorf("%s: expected 16-bit mono PCM, got %d-bit %d-channel", f.path, header.BitsPerSample, header.Channels)
	}

	samples := bytesToInt16(data)
	samplesPerFrame := header.SampleRate * f.frameDurationMs / 1000

	go f.replay(samples, samplesPerFrame, header.SampleRate, frames, reporter)
	return nil
}

func (f *FileSource) replay(samples []int16, samplesPerFrame, sampleRate int, frames chan<- pipeline.AudioFrame, reporter pipeline.ErrorReporter) {
	defer close(frames)

	var seq uint64
	ticker := time.NewTicker(time.Duration(f.frameDurationMs) * time.Millisecond)
	if !f.realTime {
		ticker.Stop()
	} else {
		defer ticker.Stop()
	}

	for offset := 0; offset < len(samples); offset += samplesPerFrame {
		end := offset + samplesPerFrame
		if end > len(samples) {
			end = len(samples)
		}
		frame := make([]int16, samplesPerFrame)
		copy(frame, samples[offset:end])

		if f.realTime {
			select {
			case <-ticker.C:
			case <-f.stop:
				return
			}
		}

		select {
		case frames <- pipeline.AudioFrame{Samples: frame, Timestamp: time.Now(), Sequence: seq}:
			seq++
		case <-f.stop:
			return
		}
	}
}

// Stop requests the replay goroutine to exit early; it always closes
// frames itself once replay ends, per pipeline.AudioSource.
func (f *FileSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
}
