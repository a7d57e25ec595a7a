package audio

// StreamDestination accumulates its inputs into frames and exposes them as a
// capturable Stream. The owning Context drives it once per render quantum.
// A frame is written every quantum, silence included, so consumers keep a
// steady cadence.
type StreamDestination struct {
	in      inlet
	stream  *Stream
	scratch Frame
	mix     Frame
}

func newStreamDestination(frameLen, depth int) *StreamDestination {
	return &StreamDestination{
		stream:  NewStream(frameLen, depth),
		scratch: make(Frame, frameLen),
		mix:     make(Frame, frameLen),
	}
}

// Stream returns the destination's capture stream.
func (d *StreamDestination) Stream() *Stream { return d.stream }

func (d *StreamDestination) render() {
	pull(&d.in, d.scratch, d.mix)
	d.stream.WriteFrame(d.mix)
}

func (d *StreamDestination) addInput(n Node) { d.in.addInput(n) }
func (d *StreamDestination) removeInput(n Node) { d.in.removeInput(n) }
