package audiosource

// Upsample3x and Downsample3x convert between 16kHz and 48kHz PCM, adapted
// from the teacher's resample.go. 48000/16000 is an exact integer ratio,
// so simple linear interpolation (upsampling) and 3-sample averaging
// (downsampling) are sufficient — no general-ratio resampler is needed.

// Upsample3x converts 16kHz int16 PCM to 48kHz by linear interpolation.
func Upsample3x(input []int16) []int16 {
	if len(input) == 0 {
		return nil
	}
	output := make([]int16, len(input)*3)
	for i, curr := range input {
		base := i * 3
		if i == len(input)-1 {
			output[base], output[base+1], output[base+2] = curr, curr, curr
			continue
		}
		c := int32(curr)
		diff := int32(input[i+1]) - c
		output[base] = curr
		output[base+1] = int16(c + diff/3)
		output[base+2] = int16(c + 2*diff/3)
	}
	return output
}

// Downsample3x converts 48kHz int16 PCM to 16kHz, averaging each group of
// 3 samples for anti-aliasing.
func Downsample3x(input []int16) []int16 {
	if len(input) == 0 {
		return nil
	}
	outLen := len(input) / 3
	output := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		idx := i * 3
		sum := int32(input[idx]) + int32(input[idx+1]) + int32(input[idx+2])
		output[i] = int16(sum / 3)
	}
	return output
}
