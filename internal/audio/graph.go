package audio

import "sync"

// Node is a graph element that produces audio. ReadFrame renders one quantum
// into out (zeroing it first) and reports whether any input contributed
// signal.
type Node interface {
	ReadFrame(out Frame) bool

	out() *outlet
}

// Sink is a graph element that accepts inputs.
type Sink interface {
	addInput(n Node)
	removeInput(n Node)
}

// Connect routes src's output into dst. Connecting the same pair twice is a
// no-op.
func Connect(src Node, dst Sink) {
	if src.out().add(dst) {
		dst.addInput(src)
	}
}

// Disconnect severs every outgoing edge of src, releasing its outputs.
// Calling it on an already disconnected node is a no-op.
func Disconnect(src Node) {
	for _, dst := range src.out().drain() {
		dst.removeInput(src)
	}
}

// Connected reports whether src currently feeds dst.
func Connected(src Node, dst Sink) bool {
	return src.out().has(dst)
}

// Outputs returns the number of live outgoing edges of n.
func Outputs(n Node) int {
	return n.out().count()
}

// outlet tracks where a node's output currently flows.
type outlet struct {
	mu   sync.Mutex
	dsts []Sink
}

func (o *outlet) add(dst Sink) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, d := range o.dsts {
		if d == dst {
			return false
		}
	}
	o.dsts = append(o.dsts, dst)
	return true
}

func (o *outlet) drain() []Sink {
	o.mu.Lock()
	defer o.mu.Unlock()
	dsts := o.dsts
	o.dsts = nil
	return dsts
}

func (o *outlet) has(dst Sink) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, d := range o.dsts {
		if d == dst {
			return true
		}
	}
	return false
}

func (o *outlet) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.dsts)
}

// inlet tracks a sink's current inputs.
type inlet struct {
	mu   sync.Mutex
	srcs []Node
}

func (in *inlet) addInput(n Node) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, s := range in.srcs {
		if s == n {
			return
		}
	}
	in.srcs = append(in.srcs, n)
}

func (in *inlet) removeInput(n Node) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i, s := range in.srcs {
		if s == n {
			in.srcs = append(in.srcs[:i], in.srcs[i+1:]...)
			return
		}
	}
}

func (in *inlet) snapshot() []Node {
	in.mu.Lock()
	defer in.mu.Unlock()
	srcs := make([]Node, len(in.srcs))
	copy(srcs, in.srcs)
	return srcs
}

// pull mixes every input of in into out via scratch. out is zeroed first.
func pull(in *inlet, scratch, out Frame) bool {
	out.zero()
	active := false
	for _, src := range in.snapshot() {
		if src.ReadFrame(scratch) {
			mixInto(out, scratch)
			active = true
		}
	}
	return active
}
