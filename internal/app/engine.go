// Package app composes the audio context, the loopback bridge, and the mix
// graph into the owner process's lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/manniru/hubs/internal/audio"
	"github.com/manniru/hubs/internal/config"
	"github.com/manniru/hubs/internal/loopback"
	"github.com/manniru/hubs/internal/mixgraph"
)

// Engine owns the audio side of a call. It stays suspended until the first
// interaction event is observed, then resumes the context, optionally runs
// the loopback bridge on the listener node, and initializes the mix graph.
type Engine struct {
	cfg   *config.Config
	ac    *audio.Context
	graph *mixgraph.Graph

	// listener is the scene's gain-bearing output node, supplied by the
	// embedding layer. May be nil when there is no local scene mix.
	listener audio.Node

	// bridge is swappable for tests.
	bridge func(ctx context.Context, ac *audio.Context, source audio.Node, opts loopback.Options) (*loopback.Session, error)

	startOnce sync.Once
	started   bool

	mu      sync.Mutex
	session *loopback.Session
}

func NewEngine(cfg *config.Config, ac *audio.Context, graph *mixgraph.Graph, listener audio.Node) *Engine {
	return &Engine{
		cfg:      cfg,
		ac:       ac,
		graph:    graph,
		listener: listener,
		bridge:   loopback.Bridge,
	}
}

// ObserveInteraction is the external "user interaction observed" event. The
// first call performs the single Suspended to Running transition; every
// later call is a no-op.
func (e *Engine) ObserveInteraction(ctx context.Context) {
	e.startOnce.Do(func() {
		e.start(ctx)
		e.mu.Lock()
		e.started = true
		e.mu.Unlock()
	})
}

// Started reports whether the engine has left the suspended state.
func (e *Engine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

func (e *Engine) start(ctx context.Context) {
	if err := e.ac.Resume(); err != nil {
		log.Error().Err(err).Str("module", "app").Msg("resume audio context")
		return
	}

	if e.cfg.LoopbackAEC && e.listener != nil {
		sess, err := e.bridge(ctx, e.ac, e.listener, loopback.Options{
			RTCConfig: e.rtcConfig(),
		})
		if err != nil {
			// The listener has already left the direct output path; that is
			// the documented cost of a failed bridge.
			log.Error().Err(err).Str("module", "app").Msg("loopback bridge failed")
		} else {
			e.mu.Lock()
			e.session = sess
			e.mu.Unlock()
		}
	}

	if err := e.graph.Initialize(e.ac); err != nil {
		log.Error().Err(err).Str("module", "app").Msg("initialize mix graph")
	}
}

func (e *Engine) rtcConfig() webrtc.Configuration {
	if len(e.cfg.STUNServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: e.cfg.STUNServers}},
	}
}

// PeerJoined routes a peer's inbound stream into the outbound mix.
func (e *Engine) PeerJoined(h mixgraph.Handle, s *audio.Stream) error {
	return e.graph.Add(h, s)
}

// PeerLeft tears down a departed peer's chain.
func (e *Engine) PeerLeft(h mixgraph.Handle) {
	e.graph.Remove(h)
}

// OutboundStream is the mixed stream for the transport layer.
func (e *Engine) OutboundStream() *audio.Stream {
	return e.graph.OutputStream()
}

// Levels is the polled analyser readback for level metering.
func (e *Engine) Levels() []byte {
	return e.graph.Levels()
}

// Session returns the live loopback session, or nil when the bridge is
// disabled or failed.
func (e *Engine) Session() *loopback.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Close tears down the loopback session and the audio context.
func (e *Engine) Close() {
	e.mu.Lock()
	sess := e.session
	e.session = nil
	e.mu.Unlock()
	if sess != nil {
		sess.Close()
	}
	if err := e.ac.Close(); err != nil {
		log.Error().Err(err).Str("module", "app").Msg("close audio context")
	}
}
