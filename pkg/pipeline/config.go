package pipeline

// PipelineConfig carries the recognized fields of §6, with the defaults
// named there.
type PipelineConfig struct {
	SampleRate      int `yaml:"sample_rate"`
	FrameDurationMs int `yaml:"frame_duration_ms"`

	VADSilenceThresholdDB   float64 `yaml:"vad_silence_threshold_db"`
	VADHysteresisMarginDB   float64 `yaml:"vad_hysteresis_margin_db"`
	LanguageHint            string  `yaml:"language_hint"`

	AudioVADChannelSize           int `yaml:"audio_vad_channel_size"`
	VADChunkerChannelSize         int `yaml:"vad_chunker_channel_size"`
	ChunkerTranscriberChannelSize int `yaml:"chunker_transcriber_channel_size"`
	TranscriberSinkChannelSize    int `yaml:"transcriber_sink_channel_size"`
}

// DefaultPipelineConfig returns the defaults named throughout §5/§6: 16kHz
// mono, 40ms frames, and the tuned channel capacities.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SampleRate:                    16000,
		FrameDurationMs:               40,
		VADSilenceThresholdDB:         -34, // ~0.02 linear, per §4.2's default sensitivity
		AudioVADChannelSize:           32,
		VADChunkerChannelSize:         16,
		ChunkerTranscriberChannelSize: 4,
		TranscriberSinkChannelSize:    4,
	}
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	d := DefaultPipelineConfig()
	if c.SampleRate == 0 {
		c.SampleRate = d.SampleRate
	}
	if c.FrameDurationMs == 0 {
		c.FrameDurationMs = d.FrameDurationMs
	}
	if c.VADSilenceThresholdDB == 0 {
		c.VADSilenceThresholdDB = d.VADSilenceThresholdDB
	}
	if c.AudioVADChannelSize == 0 {
		c.AudioVADChannelSize = d.AudioVADChannelSize
	}
	if c.VADChunkerChannelSize == 0 {
		c.VADChunkerChannelSize = d.VADChunkerChannelSize
	}
	if c.ChunkerTranscriberChannelSize == 0 {
		c.ChunkerTranscriberChannelSize = d.ChunkerTranscriberChannelSize
	}
	if c.TranscriberSinkChannelSize == 0 {
		c.TranscriberSinkChannelSize = d.TranscriberSinkChannelSize
	}
	return c
}
