package webrtc

import (
	"encoding/json"

	pion "github.com/pion/webrtc/v4"

	"github.com/jannskiee/floe/internal/config"
	"github.com/jannskiee/floe/internal/signalclient"
	"github.com/jannskiee/floe/internal/signaling"
	"github.com/jannskiee/floe/internal/transfer"
)

// SignalPayload is the shape of the opaque payload exchanged through
// the coordination service: either an SDP description or a trickled
// ICE candidate.
type SignalPayload struct {
	Type         string          `json:"type,omitempty"`
	SDP          string          `json:"sdp,omitempty"`
	ICECandidate json.RawMessage `json:"ice_candidate,omitempty"`
}

// NewPeerConnection builds a peer connection from the configured ICE
// servers.
func NewPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && cfg.ForceRelay {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, transfer.NewError("create peer connection", err)
	}
	return pc, nil
}

// SetupICEHandlers trickles local candidates out through the signaling
// client and flags terminal ICE states on done.
func SetupICEHandlers(pc *pion.PeerConnection, client *signalclient.Client, target, roomID string, done chan struct{}) {
	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		if state == pion.ICEConnectionStateFailed || state == pion.ICEConnectionStateClosed {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		candidate, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		SendSignal(client, target, roomID, SignalPayload{ICECandidate: candidate})
	})
}

// SendSignal wraps a payload in a signal envelope, routed point-to-point
// when target is set and room-broadcast otherwise.
func SendSignal(client *signalclient.Client, target, roomID string, payload SignalPayload) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	client.SendMessage(&signaling.Message{
		Type:   signaling.MessageTypeSignal,
		Target: target,
		RoomID: roomID,
		Signal: raw,
	})
}

// CreateOffer produces the local offer with trickle ICE: it returns
// immediately and candidates follow via OnICECandidate.
func CreateOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, transfer.NewError("create offer", err)
	}
	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, transfer.NewError("set local description", err)
	}
	return pc.LocalDescription(), nil
}

// CreateAnswer applies the remote offer and produces the local answer.
func CreateAnswer(pc *pion.PeerConnection, offer *pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(*offer); err != nil {
		return nil, transfer.NewError("set remote description", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, transfer.NewError("create answer", err)
	}
	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, transfer.NewError("set local description", err)
	}
	return pc.LocalDescription(), nil
}

// HandleSignal applies one delivered signaling payload to the peer
// connection. onOffer is invoked with a freshly received remote offer
// so the receiving side can answer; it may be nil on the offering side.
func HandleSignal(pc *pion.PeerConnection, raw json.RawMessage, onOffer func(*pion.SessionDescription)) error {
	var payload SignalPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return transfer.NewError("parse signal", err)
	}

	if payload.SDP != "" {
		switch payload.Type {
		case "offer":
			desc := pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: payload.SDP}
			if onOffer != nil {
				onOffer(&desc)
			}
		case "answer":
			desc := pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: payload.SDP}
			if err := pc.SetRemoteDescription(desc); err != nil {
				return transfer.NewError("set remote description", err)
			}
		default:
			return transfer.WrapError("handle signal", transfer.ErrSignalingError, payload.Type)
		}
	}

	if payload.ICECandidate != nil {
		var ice pion.ICECandidateInit
		if err := json.Unmarshal(payload.ICECandidate, &ice); err != nil {
			return transfer.NewError("parse ICE candidate", err)
		}
		if err := pc.AddICECandidate(ice); err != nil {
			return transfer.NewError("add ICE candidate", err)
		}
	}

	return nil
}

// CreateDataChannel opens the ordered, reliable transfer channel.
// Chunk order within a file depends on ordered delivery.
func CreateDataChannel(pc *pion.PeerConnection, label string) (*pion.DataChannel, error) {
	ordered := true
	dc, err := pc.CreateDataChannel(label, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, transfer.NewError("create data channel", err)
	}
	return dc, nil
}
