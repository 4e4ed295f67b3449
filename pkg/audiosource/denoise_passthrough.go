//go:build !rnnoise

package audiosource

// passthroughSuppressor is the default noiseSuppressor: it does nothing,
// exactly as the teacher ships rnnoise.go without the rnnoise build tag.
type passthroughSuppressor struct{}

func newNoiseSuppressor() noiseSuppressor {
	return passthroughSuppressor{}
}

func (passthroughSuppressor) processFrame(samples []int16) ([]int16, error) {
	return samples, nil
}

func (passthroughSuppressor) close() error { return nil }
