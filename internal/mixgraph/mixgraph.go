// Package mixgraph aggregates per-peer inbound audio into a single outbound
// chain: each peer gets its own source and gain node feeding one shared
// gain, tapped by an analyser, captured by a stream destination whose stream
// is handed to the transport layer.
package mixgraph

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/manniru/hubs/internal/audio"
)

// Handle identifies a peer. The caller owns handle assignment; the graph
// keeps at most one chain per handle.
type Handle string

var (
	ErrNotInitialized     = errors.New("mix graph not initialized")
	ErrAlreadyInitialized = errors.New("mix graph already initialized")
	ErrContextNotRunning  = errors.New("audio context not running")
)

// chainEntry is one peer's processing chain. Owned exclusively by the Graph:
// built on Add, disconnected on Remove or replace.
type chainEntry struct {
	source *audio.StreamSource
	gain   *audio.GainNode
}

// Graph is the outbound mix graph. The per-peer gain stage exists so a
// single peer's volume can be adjusted without reshaping the registry.
type Graph struct {
	mu      sync.RWMutex
	entries map[Handle]*chainEntry

	ac         *audio.Context
	sharedGain *audio.GainNode
	analyser   *audio.AnalyserNode
	dest       *audio.StreamDestination
	levels     []byte
}

func New() *Graph {
	return &Graph{entries: make(map[Handle]*chainEntry)}
}

// Initialize builds the shared outbound chain. It must run after the owning
// context has been resumed and exactly once; a second call returns
// ErrAlreadyInitialized and leaves the existing chain untouched.
func (g *Graph) Initialize(ac *audio.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sharedGain != nil {
		return ErrAlreadyInitialized
	}
	if ac.State() != audio.StateRunning {
		return ErrContextNotRunning
	}

	g.ac = ac
	g.sharedGain = ac.NewGain()
	g.analyser = ac.NewAnalyser()
	g.dest = ac.NewStreamDestination()
	audio.Connect(g.sharedGain, g.analyser)
	audio.Connect(g.analyser, g.dest)
	g.levels = make([]byte, g.analyser.WindowSize())

	log.Info().
		Str("module", "mixgraph").
		Int("analyser_window", g.analyser.WindowSize()).
		Msg("shared outbound chain ready")
	return nil
}

// Add builds a chain for handle from the given stream and routes it into the
// shared gain. An existing chain for the same handle is fully torn down
// first, so a handle never has duplicate or leaked routing.
func (g *Graph) Add(h Handle, s *audio.Stream) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sharedGain == nil {
		return ErrNotInitialized
	}

	if old, ok := g.entries[h]; ok {
		log.Info().Str("module", "mixgraph").Str("handle", string(h)).Msg("replacing existing chain")
		g.teardown(h, old)
	}

	source := g.ac.NewStreamSource(s)
	gain := g.ac.NewGain()
	audio.Connect(source, gain)
	audio.Connect(gain, g.sharedGain)
	g.entries[h] = &chainEntry{source: source, gain: gain}

	log.Info().
		Str("module", "mixgraph").
		Str("handle", string(h)).
		Str("stream_id", s.ID()).
		Int("peers", len(g.entries)).
		Msg("peer chain added")
	return nil
}

// Remove tears down handle's chain. An unknown handle is a no-op, not an
// error; calling it redundantly is safe.
func (g *Graph) Remove(h Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.entries[h]
	if !ok {
		return
	}
	g.teardown(h, entry)
	log.Info().
		Str("module", "mixgraph").
		Str("handle", string(h)).
		Int("peers", len(g.entries)).
		Msg("peer chain removed")
}

// teardown disconnects both nodes of entry and deletes the registry slot.
// Caller holds g.mu.
func (g *Graph) teardown(h Handle, entry *chainEntry) {
	audio.Disconnect(entry.source)
	audio.Disconnect(entry.gain)
	delete(g.entries, h)
}

// SetPeerGain adjusts one peer's volume. It reports whether the handle was
// present.
func (g *Graph) SetPeerGain(h Handle, gain float64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	entry, ok := g.entries[h]
	if !ok {
		return false
	}
	entry.gain.SetGain(gain)
	return true
}

// Levels fills the graph's fixed readback buffer from the analyser and
// returns it. The buffer is reused between calls; callers poll, nothing is
// pushed. Returns nil before Initialize.
func (g *Graph) Levels() []byte {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.analyser == nil {
		return nil
	}
	g.analyser.ByteTimeDomain(g.levels)
	return g.levels
}

// OutputStream is the live outbound stream for the transport layer. Nil
// before Initialize.
func (g *Graph) OutputStream() *audio.Stream {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.dest == nil {
		return nil
	}
	return g.dest.Stream()
}

// Len returns the number of registered peer chains.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}
