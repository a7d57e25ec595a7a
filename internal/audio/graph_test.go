package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SampleRate = 8000
	cfg.Channels = 1
	cfg.Quantum = 10 * time.Millisecond
	cfg.AnalyserWindow = 16
	cfg.StreamDepth = 4
	return cfg
}

func TestConnectDisconnect(t *testing.T) {
	ac := NewContext(testConfig())
	src := ac.NewGain()
	dst := ac.NewGain()

	Connect(src, dst)
	assert.True(t, Connected(src, dst))
	assert.Equal(t, 1, Outputs(src))

	// Connecting the same pair twice must not duplicate the edge.
	Connect(src, dst)
	assert.Equal(t, 1, Outputs(src))

	Disconnect(src)
	assert.False(t, Connected(src, dst))
	assert.Equal(t, 0, Outputs(src))

	// Disconnecting again is a no-op.
	Disconnect(src)
	assert.Equal(t, 0, Outputs(src))
}

func TestGainMixesAndScales(t *testing.T) {
	ac := NewContext(testConfig())
	frameLen := ac.FrameLen()

	a := ac.NewStream()
	b := ac.NewStream()
	fa := make(Frame, frameLen)
	fb := make(Frame, frameLen)
	for i := range fa {
		fa[i] = 1000
		fb[i] = 500
	}
	a.WriteFrame(fa)
	b.WriteFrame(fb)

	gain := ac.NewGain()
	Connect(ac.NewStreamSource(a), gain)
	Connect(ac.NewStreamSource(b), gain)
	gain.SetGain(2.0)

	out := make(Frame, frameLen)
	require.True(t, gain.ReadFrame(out))
	assert.Equal(t, int16(3000), out[0])
}

func TestGainClampsOverflow(t *testing.T) {
	ac := NewContext(testConfig())
	frameLen := ac.FrameLen()

	s := ac.NewStream()
	f := make(Frame, frameLen)
	for i := range f {
		f[i] = 30000
	}
	s.WriteFrame(f)

	gain := ac.NewGain()
	Connect(ac.NewStreamSource(s), gain)
	gain.SetGain(4.0)

	out := make(Frame, frameLen)
	require.True(t, gain.ReadFrame(out))
	assert.Equal(t, int16(32767), out[0])
}

func TestGainSilenceWhenNoInput(t *testing.T) {
	ac := NewContext(testConfig())
	gain := ac.NewGain()
	out := make(Frame, ac.FrameLen())
	out[0] = 42
	assert.False(t, gain.ReadFrame(out))
	assert.Equal(t, int16(0), out[0])
}

func TestStreamDropsOldestWhenFull(t *testing.T) {
	s := NewStream(2, 2)
	s.WriteFrame(Frame{1, 1})
	s.WriteFrame(Frame{2, 2})
	s.WriteFrame(Frame{3, 3})

	out := make(Frame, 2)
	require.True(t, s.ReadFrame(out))
	assert.Equal(t, int16(2), out[0], "oldest frame should have been dropped")
	require.True(t, s.ReadFrame(out))
	assert.Equal(t, int16(3), out[0])
	assert.False(t, s.ReadFrame(out))
}

func TestAnalyserByteTimeDomain(t *testing.T) {
	ac := NewContext(testConfig())
	frameLen := ac.FrameLen()

	an := ac.NewAnalyser()
	buf := make([]byte, an.WindowSize())

	// Before any render the window is silence: every byte reads 128.
	n := an.ByteTimeDomain(buf)
	require.Equal(t, an.WindowSize(), n)
	for _, b := range buf {
		assert.Equal(t, byte(128), b)
	}

	s := ac.NewStream()
	f := make(Frame, frameLen)
	for i := range f {
		f[i] = 32767
	}
	s.WriteFrame(f)
	Connect(ac.NewStreamSource(s), an)

	out := make(Frame, frameLen)
	require.True(t, an.ReadFrame(out))
	an.ByteTimeDomain(buf)
	assert.Equal(t, byte(255), buf[len(buf)-1])
}

func TestContextResumeIdempotent(t *testing.T) {
	ac := NewContext(testConfig())
	defer ac.Close()

	assert.Equal(t, StateSuspended, ac.State())
	require.NoError(t, ac.Resume())
	assert.Equal(t, StateRunning, ac.State())
	require.NoError(t, ac.Resume())
	assert.Equal(t, StateRunning, ac.State())
}

func TestContextClosedCannotResume(t *testing.T) {
	ac := NewContext(testConfig())
	require.NoError(t, ac.Close())
	assert.ErrorIs(t, ac.Resume(), ErrContextClosed)
	// Double close is safe.
	require.NoError(t, ac.Close())
}

func TestDestinationRendersSteadyCadence(t *testing.T) {
	ac := NewContext(testConfig())
	frameLen := ac.FrameLen()

	dest := ac.NewStreamDestination()
	s := ac.NewStream()
	f := make(Frame, frameLen)
	for i := range f {
		f[i] = 100
	}
	s.WriteFrame(f)
	Connect(ac.NewStreamSource(s), dest)

	ac.renderOnce()
	ac.renderOnce() // source exhausted: still writes silence

	out := make(Frame, frameLen)
	require.True(t, dest.Stream().ReadFrame(out))
	assert.Equal(t, int16(100), out[0])
	require.True(t, dest.Stream().ReadFrame(out))
	assert.Equal(t, int16(0), out[0])
}
