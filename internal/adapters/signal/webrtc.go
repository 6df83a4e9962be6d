package signal

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/domain"
)

// handleWebRTC validates and relays offer/answer/candidate messages. The
// payload is type-checked against the pion shapes before it is forwarded
// verbatim; the relay itself decides audibility.
func (ctl *Controller) handleWebRTC(sid domain.SessionID, kind string, data []byte) {
	if !ctl.limiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("signaling rate limited")
		return
	}

	type relayPayload struct {
		Type      string          `json:"type"`
		Target    string          `json:"targetSessionId"`
		Offer     json.RawMessage `json:"offer,omitempty"`
		Answer    json.RawMessage `json:"answer,omitempty"`
		Candidate json.RawMessage `json:"candidate,omitempty"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("kind", kind).Msg("bad relay payload, dropped")
		return
	}

	var (
		sk      app.SignalKind
		payload json.RawMessage
	)
	switch kind {
	case "webrtc_offer":
		sk, payload = app.SignalOffer, p.Offer
	case "webrtc_answer":
		sk, payload = app.SignalAnswer, p.Answer
	case "webrtc_ice_candidate":
		sk, payload = app.SignalCandidate, p.Candidate
	}
	if len(payload) == 0 || !wellFormed(sk, payload) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("kind", kind).Msg("malformed signaling payload, dropped")
		return
	}

	ctl.Room.Relay(sk, sid, domain.SessionID(p.Target), payload)
}

// wellFormed checks the payload against the corresponding WebRTC shape.
// Contents are never interpreted here; this server relays, it does not
// terminate media.
func wellFormed(kind app.SignalKind, payload json.RawMessage) bool {
	switch kind {
	case app.SignalOffer, app.SignalAnswer:
		var sd webrtc.SessionDescription
		return json.Unmarshal(payload, &sd) == nil && sd.SDP != ""
	case app.SignalCandidate:
		var ci webrtc.ICECandidateInit
		return json.Unmarshal(payload, &ci) == nil && ci.Candidate != ""
	}
	return false
}
