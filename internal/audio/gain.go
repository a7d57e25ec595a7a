package audio

import (
	"math"
	"sync/atomic"
)

// GainNode mixes its inputs and scales the result by a settable gain.
// Gain is stored atomically so it can be adjusted while the render loop runs.
type GainNode struct {
	in      inlet
	o       outlet
	gain    atomic.Uint64 // float64 bits
	scratch Frame
}

func newGainNode(frameLen int) *GainNode {
	g := &GainNode{scratch: make(Frame, frameLen)}
	g.SetGain(1.0)
	return g
}

func (g *GainNode) Gain() float64 {
	return math.Float64frombits(g.gain.Load())
}

func (g *GainNode) SetGain(v float64) {
	g.gain.Store(math.Float64bits(v))
}

func (g *GainNode) ReadFrame(out Frame) bool {
	active := pull(&g.in, g.scratch, out)
	if v := g.Gain(); v != 1.0 {
		for i, s := range out {
			out[i] = clamp(int32(math.Round(float64(s) * v)))
		}
	}
	return active
}

func (g *GainNode) out() *outlet { return &g.o }
func (g *GainNode) addInput(n Node) { g.in.addInput(n) }
func (g *GainNode) removeInput(n Node) { g.in.removeInput(n) }
