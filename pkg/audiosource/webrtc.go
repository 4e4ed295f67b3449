package audiosource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/burka/voicsh/internal/logger"
	"github.com/burka/voicsh/internal/signaling"
	"github.com/burka/voicsh/pkg/pipeline"
	"github.com/burka/voicsh/shared/protocol"
)

// WebRTCSource accepts one inbound WebRTC data channel carrying raw PCM
// audio chunks, adapted from the teacher's webrtc.Manager and
// client/internal/webrtc/client.go SendAudioChunk wire format. Unlike the
// teacher's multi-peer Manager, this AudioSource serves exactly one
// connection at a time, matching the pipeline's single-source contract.
type WebRTCSource struct {
	addr       string
	path       string
	sampleRate int
	iceServers []webrtc.ICEServer
	baseLog    *logger.Logger
	log        *logger.Scoped

	server *http.Server

	mu       sync.Mutex
	frames   chan<- pipeline.AudioFrame
	sequence uint64
}

// NewWebRTCSource builds a WebRTCSource listening on addr (e.g.
// ":9000") at the given signaling path (e.g. "/stream/signal"). sampleRate
// is the rate the pipeline expects (cfg.Pipeline.SampleRate); chunks whose
// declared sample rate or channel count don't match are rejected, same as
// FileSource rejects a WAV header that doesn't match its expectations.
func NewWebRTCSource(addr, path string, sampleRate int, iceServers []webrtc.ICEServer, log *logger.Logger) *WebRTCSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &WebRTCSource{
		addr:       addr,
		path:       path,
		sampleRate: sampleRate,
		iceServers: iceServers,
		baseLog:    log,
		log:        log.With("webrtc-source"),
	}
}

// Start implements pipeline.AudioSource: it starts an HTTP server offering
// the signaling endpoint and begins forwarding AudioFrames as soon as a
// peer's data channel delivers audio.chunk messages.
func (w *WebRTCSource) Start(frames chan<- pipeline.AudioFrame, reporter pipeline.ErrorReporter) error {
	w.mu.Lock()
	w.frames = frames
	w.mu.Unlock()

	var active atomic.Bool
	handler := signaling.NewHandler(w.iceServers, func(peerID string, dc *webrtc.DataChannel) {
		if !active.CompareAndSwap(false, true) {
			w.log.Warn("peer %s opened a data channel while another peer is active; closing it", peerID)
			dc.Close()
			return
		}
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			w.handleMessage(msg.Data, reporter)
		})
		dc.OnClose(func() {
			w.log.Info("peer %s data channel closed", peerID)
			active.Store(false)
		})
	}, w.baseLog)

	mux := http.NewServeMux()
	mux.Handle(w.path, handler)
	w.server = &http.Server{Addr: w.addr, Handler: mux}

	go func() {
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			reporter.Report("webrtc-source", pipeline.Fatal, fmt.Sprintf("signaling server failed: %v", err))
		}
	}()

	w.log.Info("listening for WebRTC signaling on %s%s", w.addr, w.path)
	return nil
}

func (w *WebRTCSource) handleMessage(data []byte, reporter pipeline.ErrorReporter) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		reporter.Report("webrtc-source", pipeline.Recoverable, "malformed data channel message: "+err.Error())
		return
	}
	if msg.Type != protocol.MessageTypeAudioChunk {
		return
	}

	var chunk protocol.AudioChunkData
	if err := json.Unmarshal(msg.Data, &chunk); err != nil {
		reporter.Report("webrtc-source", pipeline.Recoverable, "malformed audio chunk: "+err.Error())
		return
	}
	if chunk.Channels != 1 || chunk.SampleRate != w.sampleRate {
		reporter.Report("webrtc-source", pipeline.Recoverable, fmt.Sprintf(
			"dropping audio chunk with channels=%d sample_rate=%d, want mono %dHz",
			chunk.Channels, chunk.SampleRate, w.sampleRate))
		return
	}

	samples := bytesToInt16(chunk.Data)
	seq := atomic.AddUint64(&w.sequence, 1) - 1

	w.mu.Lock()
	frames := w.frames
	w.mu.Unlock()
	if frames == nil {
		return
	}

	// Blocking send: §4.1 requires the producer to apply backpressure, not
	// drop frames silently, matching MicSource and FileSource.
	frames <- pipeline.AudioFrame{Samples: samples, Timestamp: time.Now(), Sequence: seq}
}

// Stop implements pipeline.AudioSource: it shuts down the signaling server
// and closes frames. Safe to call even if Start never received a peer.
func (w *WebRTCSource) Stop() {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		w.server.Shutdown(ctx)
	}

	w.mu.Lock()
	frames := w.frames
	w.frames = nil
	w.mu.Unlock()

	if frames != nil {
		close(frames)
	}
}
