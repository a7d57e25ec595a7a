package audio

import "sync"

// AnalyserNode passes its mixed input through unchanged while retaining the
// most recent transform window for level metering. Readback is polled by the
// consumer; nothing is pushed.
type AnalyserNode struct {
	in      inlet
	o       outlet
	scratch Frame

	mu     sync.Mutex
	window []int16
}

func newAnalyserNode(frameLen, windowSize int) *AnalyserNode {
	return &AnalyserNode{
		scratch: make(Frame, frameLen),
		window:  make([]int16, windowSize),
	}
}

// WindowSize returns the transform window length in samples. Readback
// buffers must be sized to it.
func (a *AnalyserNode) WindowSize() int { return len(a.window) }

func (a *AnalyserNode) ReadFrame(out Frame) bool {
	active := pull(&a.in, a.scratch, out)

	a.mu.Lock()
	n := len(a.window)
	if len(out) >= n {
		copy(a.window, out[len(out)-n:])
	} else {
		// Frame shorter than the window: shift and append.
		copy(a.window, a.window[len(out):])
		copy(a.window[n-len(out):], out)
	}
	a.mu.Unlock()
	return active
}

// ByteTimeDomain fills buf with the retained window mapped to unsigned
// bytes, 128 meaning silence. It returns the number of bytes written,
// at most min(len(buf), WindowSize()).
func (a *AnalyserNode) ByteTimeDomain(buf []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(buf)
	if len(a.window) < n {
		n = len(a.window)
	}
	for i := 0; i < n; i++ {
		buf[i] = byte(int32(a.window[i])>>8 + 128)
	}
	return n
}

func (a *AnalyserNode) out() *outlet { return &a.o }
func (a *AnalyserNode) addInput(n Node) { a.in.addInput(n) }
func (a *AnalyserNode) removeInput(n Node) { a.in.removeInput(n) }
