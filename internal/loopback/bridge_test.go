package loopback

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manniru/hubs/internal/audio"
	"github.com/manniru/hubs/internal/playback"
)

type fakePlayer struct {
	mu     sync.Mutex
	played chan io.Reader
	plays  int
	closed bool
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{played: make(chan io.Reader, 4)}
}

func (f *fakePlayer) Play(r io.Reader) error {
	f.mu.Lock()
	f.plays++
	f.mu.Unlock()
	f.played <- r
	return nil
}

func (f *fakePlayer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePlayer) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

func bridgeTestContext() *audio.Context {
	cfg := audio.DefaultConfig()
	cfg.Quantum = 20 * time.Millisecond
	return audio.NewContext(cfg)
}

func TestBridgeSeversDirectOutput(t *testing.T) {
	ac := bridgeTestContext()
	defer ac.Close()

	source := ac.NewGain()
	audio.Connect(source, ac.Destination())
	require.True(t, audio.Connected(source, ac.Destination()))

	player := newFakePlayer()
	sess, err := Bridge(context.Background(), ac, source, Options{
		NewPlayer: func() (playback.Player, error) { return player, nil },
	})
	require.NoError(t, err)
	defer sess.Close()

	// The source must no longer feed the main output, only the loopback
	// destination.
	assert.False(t, audio.Connected(source, ac.Destination()))
	assert.True(t, audio.Connected(source, sess.Destination()))
	assert.Equal(t, 1, audio.Outputs(source))
}

func TestBridgeNegotiationDeliversOneStream(t *testing.T) {
	ac := bridgeTestContext()
	defer ac.Close()
	require.NoError(t, ac.Resume())

	source := ac.NewGain()
	audio.Connect(source, ac.Destination())

	player := newFakePlayer()
	sess, err := Bridge(context.Background(), ac, source, Options{
		NewPlayer: func() (playback.Player, error) { return player, nil },
	})
	require.NoError(t, err)
	defer sess.Close()

	var r io.Reader
	select {
	case r = <-player.played:
	case <-time.After(15 * time.Second):
		t.Fatal("inbound endpoint never delivered a track to the player")
	}

	// Media reaching the player proves the path from the loopback
	// destination through both endpoints.
	buf := make([]byte, 32)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	// Exactly one stream becomes the playback source.
	assert.Equal(t, 1, player.playCount())
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	ac := bridgeTestContext()
	defer ac.Close()

	source := ac.NewGain()
	player := newFakePlayer()
	sess, err := Bridge(context.Background(), ac, source, Options{
		NewPlayer: func() (playback.Player, error) { return player, nil },
	})
	require.NoError(t, err)

	sess.Close()
	sess.Close()
	assert.True(t, player.closed)
}
