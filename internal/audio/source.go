package audio

// StreamSource exposes one inbound Stream as a graph node. Each render
// quantum it pops at most one frame from the stream; an empty stream yields
// silence.
type StreamSource struct {
	o      outlet
	stream *Stream
}

func newStreamSource(s *Stream) *StreamSource {
	return &StreamSource{stream: s}
}

// Stream returns the wrapped stream.
func (s *StreamSource) Stream() *Stream { return s.stream }

func (s *StreamSource) ReadFrame(out Frame) bool {
	return s.stream.ReadFrame(out)
}

func (s *StreamSource) out() *outlet { return &s.o }
