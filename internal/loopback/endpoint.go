// Package loopback re-routes a processed output node through a pair of local
// in-process WebRTC peer connections and a native playback sink, so the
// platform audio path observes the signal and can echo-cancel against it.
package loopback

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Endpoint wraps one local peer connection of the loopback pair. Candidates
// arriving before the remote description is set are buffered and flushed when
// it lands; the two sides may trickle in either order.
type Endpoint struct {
	name   string
	pc     *webrtc.PeerConnection
	logger zerolog.Logger

	mu      sync.Mutex
	pending []webrtc.ICECandidateInit
}

func NewEndpoint(name string, cfg webrtc.Configuration) (*Endpoint, error) {
	me := &webrtc.MediaEngine{}
	if err := me.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	// Both endpoints live on this host, so loopback candidates are valid
	// connectivity here.
	se := webrtc.SettingEngine{}
	se.SetIncludeLoopbackCandidate(true)
	api := webrtc.NewAPI(webrtc.WithMediaEngine(me), webrtc.WithSettingEngine(se))

	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	e := &Endpoint{
		name:   name,
		pc:     pc,
		logger: log.With().Str("module", "loopback").Str("endpoint", name).Logger(),
	}
	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		e.logger.Debug().Str("ice_state", s.String()).Msg("ICE state")
	})
	return e, nil
}

// OnTrack registers fn for remote tracks delivered to this endpoint.
func (e *Endpoint) OnTrack(fn func(track *webrtc.TrackRemote)) {
	e.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		e.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track arrived")
		fn(track)
	})
}

// OnICECandidate registers fn for locally discovered candidates. The
// end-of-gathering nil candidate is filtered out.
func (e *Endpoint) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	e.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil {
			fn(c.ToJSON())
		}
	})
}

// AddCandidate applies a remote candidate, queueing it when the remote
// description has not been set yet.
func (e *Endpoint) AddCandidate(c webrtc.ICECandidateInit) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pc.RemoteDescription() == nil {
		e.pending = append(e.pending, c)
		return nil
	}
	return e.pc.AddICECandidate(c)
}

// CreateOffer builds an offer and sets it as the local description before
// returning it, so the description handed to the peer is already committed
// locally.
func (e *Endpoint) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := e.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := e.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return offer, nil
}

// Answer applies the peer's offer, flushes any queued candidates, and
// returns a locally committed answer.
func (e *Endpoint) Answer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := e.SetRemote(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	answer, err := e.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := e.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return answer, nil
}

// SetRemote applies the peer's description and flushes queued candidates.
// Individual candidate failures are logged, not propagated.
func (e *Endpoint) SetRemote(desc webrtc.SessionDescription) error {
	if err := e.pc.SetRemoteDescription(desc); err != nil {
		return err
	}
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, c := range pending {
		if err := e.pc.AddICECandidate(c); err != nil {
			e.logger.Error().Err(err).Msg("flush queued candidate")
		}
	}
	return nil
}

// AddTrack attaches a local track to the endpoint.
func (e *Endpoint) AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return e.pc.AddTrack(track)
}

// SignalingState exposes the underlying connection's signaling state.
func (e *Endpoint) SignalingState() webrtc.SignalingState {
	return e.pc.SignalingState()
}

// PendingCandidates returns the number of queued candidates.
func (e *Endpoint) PendingCandidates() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Endpoint) Close() error {
	return e.pc.Close()
}

// Pair wires candidate forwarding between the two endpoints in both
// directions. Forwarding is fire-and-forget: failures are logged and
// dropped.
func Pair(a, b *Endpoint) {
	forward := func(from, to *Endpoint) func(webrtc.ICECandidateInit) {
		return func(c webrtc.ICECandidateInit) {
			if err := to.AddCandidate(c); err != nil {
				from.logger.Error().Err(err).
					Str("to", to.name).
					Msg("forward candidate")
			}
		}
	}
	a.OnICECandidate(forward(a, b))
	b.OnICECandidate(forward(b, a))
}
