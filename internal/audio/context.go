package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the lifecycle state of a Context.
type State int32

const (
	StateSuspended State = iota
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var ErrContextClosed = errors.New("audio context closed")

// Config holds the render parameters of a Context.
type Config struct {
	SampleRate     int
	Channels       int
	Quantum        time.Duration // duration of one render frame
	StreamDepth    int           // frames buffered per stream
	AnalyserWindow int           // samples retained per analyser
}

// DefaultConfig returns 48 kHz stereo with 20 ms frames.
func DefaultConfig() Config {
	return Config{
		SampleRate:     48000,
		Channels:       2,
		Quantum:        20 * time.Millisecond,
		StreamDepth:    50,
		AnalyserWindow: 1024,
	}
}

// Context owns a set of stream destinations and renders them on a fixed
// cadence once resumed. It starts Suspended; Resume is idempotent and
// performs the single Suspended to Running transition.
type Context struct {
	cfg      Config
	frameLen int

	state atomic.Int32
	done  chan struct{}

	mu    sync.Mutex
	dests []*StreamDestination

	dest *StreamDestination // main output
}

// NewContext creates a suspended context. The main output destination is
// registered immediately so nodes can be wired before Resume.
func NewContext(cfg Config) *Context {
	c := &Context{
		cfg:      cfg,
		frameLen: cfg.FrameLen(),
		done:     make(chan struct{}),
	}
	c.dest = c.NewStreamDestination()
	return c
}

// FrameLen returns the samples per render quantum across all channels.
func (c Config) FrameLen() int {
	return int(c.Quantum.Seconds()*float64(c.SampleRate)) * c.Channels
}

func (c *Context) Config() Config { return c.cfg }
func (c *Context) FrameLen() int { return c.frameLen }
func (c *Context) Quantum() time.Duration { return c.cfg.Quantum }
func (c *Context) State() State { return State(c.state.Load()) }

// Destination is the context's main output. Nodes connected here are
// rendered into its stream, which the owner may drain to a playback device.
func (c *Context) Destination() *StreamDestination { return c.dest }

// NewGain creates a gain node sized for this context.
func (c *Context) NewGain() *GainNode { return newGainNode(c.frameLen) }

// NewAnalyser creates an analyser with the configured window.
func (c *Context) NewAnalyser() *AnalyserNode {
	return newAnalyserNode(c.frameLen, c.cfg.AnalyserWindow)
}

// NewStream creates a stream sized for this context.
func (c *Context) NewStream() *Stream {
	return NewStream(c.frameLen, c.cfg.StreamDepth)
}

// NewStreamSource wraps s as a graph source.
func (c *Context) NewStreamSource(s *Stream) *StreamSource {
	return newStreamSource(s)
}

// NewStreamDestination creates and registers a capture destination. It is
// rendered every quantum once the context is running.
func (c *Context) NewStreamDestination() *StreamDestination {
	d := newStreamDestination(c.frameLen, c.cfg.StreamDepth)
	c.mu.Lock()
	c.dests = append(c.dests, d)
	c.mu.Unlock()
	return d
}

// Resume transitions the context from Suspended to Running and starts the
// render loop. Calling it again while running is a no-op.
func (c *Context) Resume() error {
	if c.State() == StateClosed {
		return ErrContextClosed
	}
	if !c.state.CompareAndSwap(int32(StateSuspended), int32(StateRunning)) {
		return nil
	}
	log.Info().
		Str("module", "audio").
		Int("sample_rate", c.cfg.SampleRate).
		Dur("quantum", c.cfg.Quantum).
		Msg("context resumed")
	go c.renderLoop()
	return nil
}

func (c *Context) renderLoop() {
	ticker := time.NewTicker(c.cfg.Quantum)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.renderOnce()
		}
	}
}

func (c *Context) renderOnce() {
	c.mu.Lock()
	dests := make([]*StreamDestination, len(c.dests))
	copy(dests, c.dests)
	c.mu.Unlock()
	for _, d := range dests {
		d.render()
	}
}

// Close stops the render loop. A closed context cannot be resumed.
func (c *Context) Close() error {
	prev := State(c.state.Swap(int32(StateClosed)))
	if prev == StateClosed {
		return nil
	}
	close(c.done)
	log.Info().Str("module", "audio").Msg("context closed")
	return nil
}
