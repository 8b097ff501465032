// Package webrtc carries the connection layer over pion data channels,
// negotiated through the signaling broker.
package webrtc

import (
	"encoding/json"
	"fmt"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Shroud/internal/config"
	"github.com/BioHazard786/Shroud/internal/signaling"
	"github.com/BioHazard786/Shroud/internal/utils"
)

const channelLabel = "shroud"

// iceConfiguration builds the pion configuration from the client config.
func iceConfiguration(cfg *config.Config) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

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
	if turnServers != nil && (cfg.ForceRelay || utils.ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// peer is the negotiation state for one remote.
type peer struct {
	remote string
	pc     *pion.PeerConnection
	ch     *dataChannel
	client *signaling.Client

	mu sync.Mutex
	// Local candidates wait until our description has been signaled so
	// they never overtake it at the broker.
	signaled    bool
	localQueue  []pion.ICECandidateInit
	remoteSet   bool
	remoteQueue []pion.ICECandidateInit
}

func newPeer(api *pion.API, cfg *config.Config, client *signaling.Client, remote string) (*peer, error) {
	pc, err := api.NewPeerConnection(iceConfiguration(cfg))
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &peer{remote: remote, pc: pc, client: client}
	p.ch = newDataChannel(remote, pc)

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		p.queueLocal(c.ToJSON())
	})

	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		if state == pion.ICEConnectionStateFailed {
			p.ch.FireError(fmt.Errorf("ice connection to %s failed", remote))
		}
	})

	return p, nil
}

// offer starts negotiation from this side.
func (p *peer) offer() error {
	ordered := true
	dc, err := p.pc.CreateDataChannel(channelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}
	p.ch.bind(dc)

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	return p.signalDescription(signaling.SignalOffer, offer.SDP)
}

// answer replies to a remote offer.
func (p *peer) answer(sdp string) error {
	if err := p.setRemote(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}); err != nil {
		return err
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	return p.signalDescription(signaling.SignalAnswer, answer.SDP)
}

func (p *peer) acceptAnswer(sdp string) error {
	return p.setRemote(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdp})
}

func (p *peer) setRemote(desc pion.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	p.mu.Lock()
	p.remoteSet = true
	queued := p.remoteQueue
	p.remoteQueue = nil
	p.mu.Unlock()

	for _, c := range queued {
		if err := p.pc.AddICECandidate(c); err != nil {
			return fmt.Errorf("add ice candidate: %w", err)
		}
	}
	return nil
}

// addCandidate applies a remote candidate, holding it until the remote
// description is known.
func (p *peer) addCandidate(raw json.RawMessage) error {
	var c pion.ICECandidateInit
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("parse ice candidate: %w", err)
	}

	p.mu.Lock()
	if !p.remoteSet {
		p.remoteQueue = append(p.remoteQueue, c)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.pc.AddICECandidate(c); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}
	return nil
}

func (p *peer) signalDescription(kind, sdp string) error {
	if err := p.client.SendSignal(p.remote, signaling.SignalPayload{Type: kind, SDP: sdp}); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}

	p.mu.Lock()
	p.signaled = true
	queued := p.localQueue
	p.localQueue = nil
	p.mu.Unlock()

	for _, c := range queued {
		p.sendCandidate(c)
	}
	return nil
}

func (p *peer) queueLocal(c pion.ICECandidateInit) {
	p.mu.Lock()
	if !p.signaled {
		p.localQueue = append(p.localQueue, c)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.sendCandidate(c)
}

func (p *peer) sendCandidate(c pion.ICECandidateInit) {
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	_ = p.client.SendSignal(p.remote, signaling.SignalPayload{Type: signaling.SignalCandidate, ICECandidate: raw})
}
