// Package signaling implements the WebSocket SDP/ICE exchange that lets a
// remote peer open a WebRTC PeerConnection against this process, adapted
// from the teacher's server/internal/api/server.go handleSignaling handler.
// It answers offers (this process never originates a call) and hands the
// resulting inbound data channel to a caller-supplied callback.
package signaling

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/burka/voicsh/internal/logger"
	"github.com/burka/voicsh/shared/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades incoming HTTP requests to WebSocket signaling
// connections, answers the offer it receives, and invokes onDataChannel
// once the remote peer opens its audio data channel.
type Handler struct {
	log           *logger.Scoped
	iceServers    []webrtc.ICEServer
	onDataChannel func(peerID string, dc *webrtc.DataChannel)
}

// NewHandler builds a signaling Handler. iceServers may be nil for
// localhost-only connections, matching the teacher's client default.
func NewHandler(iceServers []webrtc.ICEServer, onDataChannel func(peerID string, dc *webrtc.DataChannel), log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		log:           log.With("signaling"),
		iceServers:    iceServers,
		onDataChannel: onDataChannel,
	}
}

// ServeHTTP handles one signaling connection for its entire lifetime,
// negotiating exactly one PeerConnection per upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	peerID := uuid.New().String()
	h.log.Info("new signaling connection, peer %s", peerID)

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: h.iceServers})
	if err != nil {
		h.log.Error("failed to create peer connection for %s: %v", peerID, err)
		return
	}
	defer pc.Close()

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		h.log.Debug("peer %s connection state: %s", peerID, state.String())
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		candidateJSON, err := json.Marshal(candidate.ToJSON())
		if err != nil {
			h.log.Error("failed to marshal ICE candidate for %s: %v", peerID, err)
			return
		}
		msg := protocol.SignalingMessage{Type: "ice", Data: json.RawMessage(candidateJSON)}
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Error("failed to send ICE candidate to %s: %v", peerID, err)
		}
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		h.log.Info("peer %s opened data channel %q", peerID, dc.Label())
		if h.onDataChannel != nil {
			h.onDataChannel(peerID, dc)
		}
	})

	for {
		var msg protocol.SignalingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.Debug("signaling connection %s closed: %v", peerID, err)
			break
		}

		switch msg.Type {
		case "offer":
			answer, err := answerOffer(pc, msg.Data)
			if err != nil {
				h.log.Error("failed to answer offer from %s: %v", peerID, err)
				continue
			}
			response := protocol.SignalingMessage{Type: "answer", Data: json.RawMessage(answer)}
			if err := conn.WriteJSON(response); err != nil {
				h.log.Error("failed to send answer to %s: %v", peerID, err)
			}

		case "ice":
			var candidate webrtc.ICECandidateInit
			if err := json.Unmarshal(msg.Data, &candidate); err != nil {
				h.log.Error("failed to unmarshal ICE candidate from %s: %v", peerID, err)
				continue
			}
			if err := pc.AddICECandidate(candidate); err != nil {
				h.log.Error("failed to add ICE candidate from %s: %v", peerID, err)
			}

		default:
			h.log.Warn("peer %s sent unknown signaling message type %q", peerID, msg.Type)
		}
	}

	h.log.Info("signaling connection closed for peer %s", peerID)
}

func answerOffer(pc *webrtc.PeerConnection, offerJSON json.RawMessage) (json.RawMessage, error) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(offerJSON, &offer); err != nil {
		return nil, fmt.Errorf("unmarshal offer: %w", err)
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("marshal answer: %w", err)
	}
	return answerJSON, nil
}
