// Package audio implements the processing graph the voice pipeline is built
// from: a context with an explicit Suspended/Running lifecycle, gain and
// analyser nodes, and stream sources/destinations that move interleaved PCM
// frames between the graph and the rest of the system.
package audio

import "encoding/binary"

// Frame is one render quantum of interleaved int16 PCM.
type Frame []int16

func (f Frame) zero() {
	for i := range f {
		f[i] = 0
	}
}

// mixInto sums src into dst sample by sample with hard clipping.
func mixInto(dst, src Frame) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] = clamp(int32(dst[i]) + int32(src[i]))
	}
}

func clamp(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Bytes encodes the frame as little-endian 16-bit PCM into buf,
// which must hold at least 2*len(f) bytes. It returns the bytes written.
func (f Frame) Bytes(buf []byte) int {
	for i, s := range f {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	return 2 * len(f)
}
