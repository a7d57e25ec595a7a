// Package playback abstracts the native audio output the loopback path plays
// through. The production implementation uses oto; tests supply fakes.
package playback

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

// Player drains a PCM byte stream into the platform audio device.
type Player interface {
	// Play starts draining r in the background and returns immediately.
	Play(r io.Reader) error
	Close() error
}

// OtoPlayer plays signed 16-bit little-endian PCM through oto.
type OtoPlayer struct {
	ctx *oto.Context

	mu     sync.Mutex
	player *oto.Player
}

// NewOtoPlayer initializes the platform audio context and blocks until it is
// ready.
func NewOtoPlayer(sampleRate, channels int) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("create audio device context: %w", err)
	}
	<-ready
	return &OtoPlayer{ctx: ctx}, nil
}

func (p *OtoPlayer) Play(r io.Reader) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player != nil {
		if err := p.player.Close(); err != nil {
			log.Error().Err(err).Str("module", "playback").Msg("close previous player")
		}
	}
	p.player = p.ctx.NewPlayer(r)
	p.player.Play()
	log.Info().Str("module", "playback").Msg("playback started")
	return nil
}

func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	return err
}
