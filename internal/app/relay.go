package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

// SignalKind names one of the relayed WebRTC message kinds. The value is
// also the outbound event type.
type SignalKind string

const (
	SignalOffer     SignalKind = "webrtc_offer"
	SignalAnswer    SignalKind = "webrtc_answer"
	SignalCandidate SignalKind = "webrtc_ice_candidate"
)

// payloadField is the event field each kind carries its payload under.
var payloadField = map[SignalKind]string{
	SignalOffer:     "offer",
	SignalAnswer:    "answer",
	SignalCandidate: "candidate",
}

// Relay forwards a signaling payload verbatim to the target, tagged with the
// sender's session id. Best-effort: a missing target, dead connection or
// failed audibility check is a silent no-op for the sender. Signaling
// between peers who cannot hear each other is expected, not exceptional.
func (r *Room) Relay(kind SignalKind, from, to domain.SessionID, payload json.RawMessage) {
	field, ok := payloadField[kind]
	if !ok || to == "" || len(payload) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sender, ok := r.participants[from]
	if !ok {
		return
	}
	target, ok := r.participants[to]
	if !ok {
		return
	}
	conn, ok := r.conns[to]
	if !ok {
		return
	}
	if !r.canHearLocked(sender, target) {
		log.Debug().Str("module", "app.relay").Str("kind", string(kind)).
			Str("from", string(from)).Str("to", string(to)).Msg("not audible, dropped")
		return
	}

	r.send(conn, map[string]any{
		"type":          string(kind),
		"fromSessionId": from,
		field:           payload,
	})
}

// VoiceChatJoin announces voice presence to every currently audible peer and
// answers the joiner with the audible peer list.
func (r *Room) VoiceChatJoin(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[sid]
	if !ok {
		return
	}
	audible := r.audiblePeersLocked(p)
	peers := make([]VoicePeer, 0, len(audible))
	for _, peer := range audible {
		peers = append(peers, VoicePeer{SessionID: peer.Session, Name: peer.Name})
		r.sendToLocked(peer.Session, voiceChatPeerJoined{
			Type:      "voice_chat_peer_joined",
			SessionID: sid,
			Name:      p.Name,
			X:         p.X,
			Y:         p.Y,
		})
	}
	r.sendToLocked(sid, voiceChatPeersList{Type: "voice_chat_peers_list", Peers: peers})
}

// VoiceChatLeave withdraws voice presence from the audible peers.
func (r *Room) VoiceChatLeave(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[sid]
	if !ok {
		return
	}
	for _, peer := range r.audiblePeersLocked(p) {
		r.sendToLocked(peer.Session, voiceChatPeerLeft{
			Type:      "voice_chat_peer_left",
			SessionID: sid,
		})
	}
}
