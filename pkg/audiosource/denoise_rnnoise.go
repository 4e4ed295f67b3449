//go:build rnnoise

package audiosource

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/xaionaro-go/audio/pkg/audio"
	"github.com/xaionaro-go/audio/pkg/noisesuppression/implementations/rnnoise"
)

// rnnoiseFrameSamples is 10ms at 48kHz, the frame size RNNoise operates
// on; the pipeline's 16kHz frames are upsampled to it and downsampled
// back, exactly as the teacher's rnnoise_real.go does.
const rnnoiseFrameSamples = 480

type rnnoiseSuppressor struct {
	denoiser *rnnoise.RNNoise
	buffer   []int16
}

func newNoiseSuppressor() noiseSuppressor {
	denoiser, err := rnnoise.New(audio.Channel(1))
	if err != nil {
		// The suppressor degrades to a pass-through rather than failing
		// Start outright — noise suppression is optional preprocessing,
		// not one of the pipeline's required stages.
		return &rnnoiseSuppressor{}
	}
	return &rnnoiseSuppressor{denoiser: denoiser}
}

func (r *rnnoiseSuppressor) processFrame(samples []int16) ([]int16, error) {
	if r.denoiser == nil {
		return samples, nil
	}
	r.buffer = append(r.buffer, samples...)

	var out []int16
	for len(r.buffer) >= rnnoiseFrameSamples/3 {
		frame16k := r.buffer[:rnnoiseFrameSamples/3]
		r.buffer = r.buffer[rnnoiseFrameSamples/3:]

		frame48k := Upsample3x(frame16k)
		input := int16ToFloat32Bytes(frame48k)
		output := make([]byte, len(input))

		if _, err := r.denoiser.SuppressNoise(context.Background(), input, output); err != nil {
			return nil, fmt.Errorf("rnnoise suppress: %w", err)
		}

		denoised48k := float32BytesToInt16(output)
		out = append(out, Downsample3x(denoised48k)...)
	}
	return out, nil
}

func (r *rnnoiseSuppressor) close() error {
	if r.denoiser != nil {
		return r.denoiser.Close()
	}
	return nil
}

func int16ToFloat32Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		f := float32(s) / 32768.0
		bits := *(*uint32)(unsafe.Pointer(&f))
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func float32BytesToInt16(data []byte) []int16 {
	n := len(data) / 4
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		f := *(*float32)(unsafe.Pointer(&bits))
		if f > 1.0 {
			f = 1.0
		} else if f < -1.0 {
			f = -1.0
		}
		out[i] = int16(f * 32767.0)
	}
	return out
}
