// Package config loads voicsh's YAML configuration file, adapted from the
// teacher's server/internal/config and client/internal/config packages
// merged into a single file since voicsh is a single binary rather than a
// client/server pair.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pion/webrtc/v4"
)

// Config is voicsh's top-level configuration, unmarshaled from YAML.
type Config struct {
	Log struct {
		Debug  bool   `yaml:"debug"`
		Level  string `yaml:"level"`  // debug, info, warn, error, fatal
		Format string `yaml:"format"` // text, json
	} `yaml:"log"`

	Source struct {
		// Kind selects the AudioSource: "mic", "file", or "webrtc".
		Kind       string `yaml:"kind"`
		Device     string `yaml:"device"`      // mic: input device name, empty = default
		FilePath   string `yaml:"file_path"`   // file: WAV path to replay
		RealTime   bool   `yaml:"real_time"`   // file: pace playback to wall-clock time
		BindAddr   string `yaml:"bind_addr"`   // webrtc: signaling HTTP bind address
		SignalPath string `yaml:"signal_path"` // webrtc: signaling endpoint path
		Denoise    bool   `yaml:"denoise"`     // wrap the source in noise suppression
	} `yaml:"source"`

	WebRTC struct {
		ICEServers []ICEServer `yaml:"ice_servers"`
	} `yaml:"webrtc"`

	Transcription struct {
		ModelPath     string `yaml:"model_path"`
		Language      string `yaml:"language"`
		Threads       int    `yaml:"threads"`
		BeamSize      int    `yaml:"beam_size"`
		SpeedUp       bool   `yaml:"speed_up"`
		InitialPrompt string `yaml:"initial_prompt"`
	} `yaml:"transcription"`

	Pipeline struct {
		SampleRate            int     `yaml:"sample_rate"`
		FrameDurationMs       int     `yaml:"frame_duration_ms"`
		VADSilenceThresholdDB float64 `yaml:"vad_silence_threshold_db"`
		VADHysteresisMarginDB float64 `yaml:"vad_hysteresis_margin_db"`
		LanguageHint          string  `yaml:"language_hint"`
	} `yaml:"pipeline"`

	Sink struct {
		// Kind selects the TextSink: "collector", "injector", or "stdout".
		Kind string `yaml:"kind"`
	} `yaml:"sink"`
}

// ICEServer mirrors the teacher's server/internal/config ICEServer shape.
type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

// ToWebRTC converts the configured ICE servers to pion's type.
func (c *Config) ToWebRTC() []webrtc.ICEServer {
	if len(c.WebRTC.ICEServers) == 0 {
		return nil
	}
	out := make([]webrtc.ICEServer, len(c.WebRTC.ICEServers))
	for i, s := range c.WebRTC.ICEServers {
		out[i] = webrtc.ICEServer{URLs: s.URLs, Username: s.Username, Credential: s.Credential}
	}
	return out
}

// Load reads and parses a YAML config file at path, falling back to
// Default when the file does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns voicsh's built-in default configuration: microphone
// input, 16kHz/40ms frames, text logging, and a stdout sink.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Source.Kind = "mic"
	cfg.Source.BindAddr = "localhost:9000"
	cfg.Source.SignalPath = "/stream/signal"
	cfg.Transcription.Threads = 4
	cfg.Transcription.BeamSize = 5
	cfg.Pipeline.SampleRate = 16000
	cfg.Pipeline.FrameDurationMs = 40
	cfg.Pipeline.VADSilenceThresholdDB = -34
	cfg.Pipeline.VADHysteresisMarginDB = 6
	cfg.Sink.Kind = "stdout"
	return cfg
}

// applyDefaults fills zero-valued fields left unset by a partial YAML
// document, mirroring the teacher's Load defaulting for BindAddress.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = def.Source.Kind
	}
	if cfg.Source.BindAddr == "" {
		cfg.Source.BindAddr = def.Source.BindAddr
	}
	if cfg.Source.SignalPath == "" {
		cfg.Source.SignalPath = def.Source.SignalPath
	}
	if cfg.Transcription.Threads == 0 {
		cfg.Transcription.Threads = def.Transcription.Threads
	}
	if cfg.Transcription.BeamSize == 0 {
		cfg.Transcription.BeamSize = def.Transcription.BeamSize
	}
	if cfg.Pipeline.SampleRate == 0 {
		cfg.Pipeline.SampleRate = def.Pipeline.SampleRate
	}
	if cfg.Pipeline.FrameDurationMs == 0 {
		cfg.Pipeline.FrameDurationMs = def.Pipeline.FrameDurationMs
	}
	if cfg.Pipeline.VADSilenceThresholdDB == 0 {
		cfg.Pipeline.VADSilenceThresholdDB = def.Pipeline.VADSilenceThresholdDB
	}
	if cfg.Pipeline.VADHysteresisMarginDB == 0 {
		cfg.Pipeline.VADHysteresisMarginDB = def.Pipeline.VADHysteresisMarginDB
	}
	if cfg.Sink.Kind == "" {
		cfg.Sink.Kind = def.Sink.Kind
	}
}
