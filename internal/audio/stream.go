package audio

import (
	"sync"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
)

// Stream carries PCM frames between the graph and external producers or
// consumers. It buffers a bounded number of frames; when the queue is full
// the oldest frame is dropped so latency cannot accumulate.
type Stream struct {
	id       string
	frameLen int
	depth    int

	mu sync.Mutex
	q  deque.Deque[Frame]
}

// NewStream creates a stream for frames of frameLen samples, buffering at
// most depth frames.
func NewStream(frameLen, depth int) *Stream {
	return &Stream{
		id:       uuid.NewString(),
		frameLen: frameLen,
		depth:    depth,
	}
}

func (s *Stream) ID() string { return s.id }

// FrameLen returns the expected samples per frame.
func (s *Stream) FrameLen() int { return s.frameLen }

// WriteFrame copies f onto the queue, dropping the oldest frame when full.
func (s *Stream) WriteFrame(f Frame) {
	cp := make(Frame, len(f))
	copy(cp, f)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.q.Len() >= s.depth {
		s.q.PopFront()
	}
	s.q.PushBack(cp)
}

// ReadFrame pops the oldest frame into out. It reports whether a frame was
// available; when it returns false, out is zeroed (silence).
func (s *Stream) ReadFrame(out Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.q.Len() == 0 {
		out.zero()
		return false
	}
	f := s.q.PopFront()
	copy(out, f)
	for i := len(f); i < len(out); i++ {
		out[i] = 0
	}
	return true
}

// Len returns the number of buffered frames.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Len()
}
