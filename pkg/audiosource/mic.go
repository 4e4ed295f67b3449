// Package audiosource provides AudioSource implementations for the
// pipeline core: live microphone capture, deterministic WAV file replay,
// and WebRTC data-channel ingress, plus an optional denoise decorator.
package audiosource

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/burka/voicsh/internal/logger"
	"github.com/burka/voicsh/pkg/pipeline"
)

// MicSource captures from a local input device via malgo, adapted from the
// teacher's client/internal/audio/capture.go buffering-and-sequencing
// logic, generalized from a fixed 200ms chunk size to the pipeline's
// configurable FrameDurationMs, and switched from the teacher's
// drop-when-full policy to a blocking send — §4.1 requires that no message
// is dropped silently under backpressure.
type MicSource struct {
	sampleRate      int
	frameDurationMs int
	deviceName      string
	log             *logger.Scoped

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu        sync.Mutex
	running   bool
	buffer    []int16
	frameSize int
	sequence  uint64
	frames    chan<- pipeline.AudioFrame
}

// NewMicSource builds a MicSource. sampleRate and frameDurationMs come
// from the pipeline's PipelineConfig so the emitted AudioFrames already
// satisfy §3's size invariant.
func NewMicSource(sampleRate, frameDurationMs int, deviceName string, log *logger.Logger) *MicSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &MicSource{
		sampleRate:      sampleRate,
		frameDurationMs: frameDurationMs,
		deviceName:      deviceName,
		log:             log.With("mic-source"),
		frameSize:       sampleRate * frameDurationMs / 1000,
	}
}

// Start implements pipeline.AudioSource: it opens the capture device and
// begins delivering AudioFrames on frames as malgo's data callback fires.
func (m *MicSource) Start(frames chan<- pipeline.AudioFrame, reporter pipeline.ErrorReporter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("mic source already running")
	}
	m.frames = frames

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init malgo context: %w", err)
	}
	m.ctx = ctx

	deviceID, found := m.findDevice(ctx)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	if found {
		deviceConfig.Capture.DeviceID = deviceID.Pointer()
	}
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onRecvFrames := func(_, pSample []byte, _ uint32) {
		m.onData(pSample, frames, reporter)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init capture device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start capture device: %w", err)
	}

	m.running = true
	return nil
}

func (m *MicSource) findDevice(ctx *malgo.AllocatedContext) (malgo.DeviceID, bool) {
	if m.deviceName == "" {
		return malgo.DeviceID{}, false
	}
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		m.log.Warn("could not enumerate capture devices: %v", err)
		return malgo.DeviceID{}, false
	}
	for _, info := range infos {
		if info.Name() == m.deviceName {
			return info.ID, true
		}
	}
	m.log.Warn("device %q not found, using default", m.deviceName)
	return malgo.DeviceID{}, false
}

// onData runs on malgo's audio thread. It appends incoming bytes to an
// internal buffer and emits one AudioFrame per complete frame, blocking on
// send so a slow downstream applies backpressure rather than losing audio.
func (m *MicSource) onData(pSample []byte, frames chan<- pipeline.AudioFrame, reporter pipeline.ErrorReporter) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}

	samples := bytesToInt16(pSample)
	m.buffer = append(m.buffer, samples...)

	var ready [][]int16
	for len(m.buffer) >= m.frameSize {
		frame := make([]int16, m.frameSize)
		copy(frame, m.buffer[:m.frameSize])
		ready = append(ready, frame)
		m.buffer = m.buffer[m.frameSize:]
	}
	m.mu.Unlock()

	now := time.Now()
	for _, samples := range ready {
		m.mu.Lock()
		seq := m.sequence
		m.sequence++
		m.mu.Unlock()

		frames <- pipeline.AudioFrame{Samples: samples, Timestamp: now, Sequence: seq}
	}
}

// Stop implements pipeline.AudioSource: it stops the capture device and
// closes frames. It is safe to call even if Start failed partway through.
func (m *MicSource) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	device, ctx, frames := m.device, m.ctx, m.frames
	m.mu.Unlock()

	if device != nil {
		device.Stop()
		device.Uninit()
	}
	if ctx != nil {
		ctx.Uninit()
		ctx.Free()
	}
	// device.Stop has returned, so the data callback can no longer fire;
	// closing here is the one place that happens, matching §6's "failures
	// to deliver frames ... MUST close the sender" and §5 step 2.
	if frames != nil {
		close(frames)
	}
}

func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}
