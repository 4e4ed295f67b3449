package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.Kind != "mic" {
		t.Errorf("Source.Kind = %q, want %q", cfg.Source.Kind, "mic")
	}
	if cfg.Pipeline.SampleRate != 16000 {
		t.Errorf("Pipeline.SampleRate = %d, want 16000", cfg.Pipeline.SampleRate)
	}
}

func TestLoadPartialDocumentFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicsh.yaml")
	doc := "source:\n  kind: file\n  file_path: /tmp/in.wav\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.Kind != "file" {
		t.Errorf("Source.Kind = %q, want %q", cfg.Source.Kind, "file")
	}
	if cfg.Source.FilePath != "/tmp/in.wav" {
		t.Errorf("Source.FilePath = %q, want /tmp/in.wav", cfg.Source.FilePath)
	}
	if cfg.Pipeline.SampleRate != 16000 {
		t.Errorf("Pipeline.SampleRate = %d, want 16000 (default fill)", cfg.Pipeline.SampleRate)
	}
	if cfg.Sink.Kind != "stdout" {
		t.Errorf("Sink.Kind = %q, want stdout (default fill)", cfg.Sink.Kind)
	}
}

func TestToWebRTCConvertsICEServers(t *testing.T) {
	cfg := Default()
	cfg.WebRTC.ICEServers = []ICEServer{{URLs: []string{"stun:stun.example.com:19302"}}}

	servers := cfg.ToWebRTC()
	if len(servers) != 1 {
		t.Fatalf("len(servers) = %d, want 1", len(servers))
	}
	if servers[0].URLs[0] != "stun:stun.example.com:19302" {
		t.Errorf("URLs[0] = %q, want stun:stun.example.com:19302", servers[0].URLs[0])
	}
}

func TestToWebRTCNilWhenUnconfigured(t *testing.T) {
	cfg := Default()
	if servers := cfg.ToWebRTC(); servers != nil {
		t.Errorf("ToWebRTC() = %v, want nil", servers)
	}
}
