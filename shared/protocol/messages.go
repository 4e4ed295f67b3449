// Package protocol defines the wire messages exchanged between a remote
// audio sender and WebRTCSource: a thin JSON envelope over the WebRTC data
// channel, plus the WebSocket signaling envelope used to establish it.
// Adapted from the teacher's shared/protocol/messages.go, trimmed to the
// subset WebRTCSource actually consumes — control/transcript message types
// belonged to the teacher's own DataChannel result-delivery path, which
// voicsh's TextSink abstraction replaces.
package protocol

import "encoding/json"

// MessageType identifies the payload carried by a Message.
type MessageType string

// MessageTypeAudioChunk is the only message type WebRTCSource currently
// consumes from the data channel.
const MessageTypeAudioChunk MessageType = "audio.chunk"

// Message is the envelope sent over the WebRTC data channel.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// AudioChunkData carries one chunk of raw little-endian 16-bit PCM audio.
type AudioChunkData struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Data       []byte `json:"data"`
	SequenceID uint64 `json:"sequence_id"`
}

// SignalingMessage is exchanged over the signaling WebSocket to negotiate
// the WebRTC PeerConnection: "offer", "answer", or "ice".
type SignalingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
