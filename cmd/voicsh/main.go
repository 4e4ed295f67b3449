// Command voicsh is an offline voice-typing engine: it reads audio from a
// microphone, a WAV file, or an inbound WebRTC data channel, runs it
// through the VAD/chunk/transcribe pipeline, and delivers text to a sink.
// Adapted from the teacher's server/cmd/server/main.go startup sequence.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/burka/voicsh/internal/config"
	"github.com/burka/voicsh/internal/logger"
	"github.com/burka/voicsh/pkg/audiosource"
	"github.com/burka/voicsh/pkg/pipeline"
	"github.com/burka/voicsh/pkg/textsink"
	"github.com/burka/voicsh/pkg/transcriber"
)

func main() {
	configPath := flag.String("config", "voicsh.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicsh: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithConfig(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		Output: os.Stdout,
	})
	log.Info("starting voicsh")

	source, err := buildSource(cfg, log)
	if err != nil {
		log.Fatal("failed to build audio source: %v", err)
	}

	transcribe, closeTranscriber, err := buildTranscriber(cfg, log)
	if err != nil {
		log.Fatal("failed to build transcriber: %v", err)
	}
	if closeTranscriber != nil {
		defer closeTranscriber()
	}

	sink := buildSink(cfg, log)

	pipelineCfg := pipeline.PipelineConfig{
		SampleRate:            cfg.Pipeline.SampleRate,
		FrameDurationMs:       cfg.Pipeline.FrameDurationMs,
		VADSilenceThresholdDB: cfg.Pipeline.VADSilenceThresholdDB,
		VADHysteresisMarginDB: cfg.Pipeline.VADHysteresisMarginDB,
		LanguageHint:          cfg.Pipeline.LanguageHint,
	}
	reporter := pipeline.NewLogReporter(log)

	handle, err := pipeline.Start(pipelineCfg, source, transcribe, sink, reporter, log)
	if err != nil {
		log.Fatal("failed to start pipeline: %v", err)
	}

	finished := make(chan struct{})
	go func() {
		handle.Wait()
		close(finished)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info("received shutdown signal, stopping pipeline")
	case <-finished:
		log.Info("pipeline finished")
	}

	result, ok := handle.Stop()
	if ok {
		fmt.Println(result)
	}
	log.Info("voicsh stopped")
}

func buildSource(cfg *config.Config, log *logger.Logger) (pipeline.AudioSource, error) {
	var source pipeline.AudioSource
	switch cfg.Source.Kind {
	case "mic":
		source = audiosource.NewMicSource(cfg.Pipeline.SampleRate, cfg.Pipeline.FrameDurationMs, cfg.Source.Device, log)
	case "file":
		if cfg.Source.FilePath == "" {
			return nil, errors.New("source.file_path is required when source.kind is \"file\"")
		}
		source = audiosource.NewFileSource(cfg.Source.FilePath, cfg.Pipeline.FrameDurationMs, cfg.Source.RealTime, log)
	case "webrtc":
		source = audiosource.NewWebRTCSource(cfg.Source.BindAddr, cfg.Source.SignalPath, cfg.Pipeline.SampleRate, cfg.ToWebRTC(), log)
	default:
		return nil, fmt.Errorf("unknown source.kind %q", cfg.Source.Kind)
	}

	if cfg.Source.Denoise {
		source = audiosource.NewDenoiseSource(source, log)
	}
	return source, nil
}

func buildTranscriber(cfg *config.Config, log *logger.Logger) (pipeline.Transcriber, func(), error) {
	shared, err := transcriber.LoadSharedModel(cfg.Transcription.ModelPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("load whisper model: %w", err)
	}

	whisperCfg := transcriber.Config{
		Language:      cfg.Transcription.Language,
		Threads:       uint(cfg.Transcription.Threads),
		BeamSize:      cfg.Transcription.BeamSize,
		SpeedUp:       cfg.Transcription.SpeedUp,
		InitialPrompt: cfg.Transcription.InitialPrompt,
	}
	t, err := transcriber.NewWhisperTranscriber(shared, whisperCfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init whisper transcriber: %w", err)
	}
	return t, func() { t.Close() }, nil
}

func buildSink(cfg *config.Config, log *logger.Logger) pipeline.TextSink {
	switch cfg.Sink.Kind {
	case "collector":
		return pipeline.NewCollectorSink()
	case "injector":
		return pipeline.NewInjectorSink(textsink.NewLoggingInjector(log))
	default:
		return pipeline.NewStandardOutSink(os.Stdout)
	}
}
