package loopback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/manniru/hubs/internal/audio"
	"github.com/manniru/hubs/internal/playback"
)

// Options configures a bridge run.
type Options struct {
	// RTCConfig is applied to both local endpoints.
	RTCConfig webrtc.Configuration

	// NewPlayer builds the playback sink. Defaults to the oto player at the
	// context's sample rate and channel count.
	NewPlayer func() (playback.Player, error)
}

// Session holds the live loopback pair after a successful bridge. The
// connections stay up for as long as the session lives; Close tears down
// both endpoints, the pump, and the playback sink.
type Session struct {
	ID string

	outbound *Endpoint
	inbound  *Endpoint
	player   playback.Player
	dest     *audio.StreamDestination

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Destination returns the capture destination the bridged node now feeds.
func (s *Session) Destination() *audio.StreamDestination { return s.dest }

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if err := s.outbound.Close(); err != nil {
			log.Error().Err(err).Str("module", "loopback").Msg("close outbound endpoint")
		}
		if err := s.inbound.Close(); err != nil {
			log.Error().Err(err).Str("module", "loopback").Msg("close inbound endpoint")
		}
		if err := s.player.Close(); err != nil {
			log.Error().Err(err).Str("module", "loopback").Msg("close player")
		}
		log.Info().Str("module", "loopback").Str("session", s.ID).Msg("session closed")
	})
}

// Bridge severs source from its current outputs and re-establishes an
// equivalent path through two local peer connections and a playback sink, so
// the platform mixer observes the signal.
//
// The disconnection is performed before negotiation and is NOT rolled back
// on failure: after Bridge returns, source no longer feeds its previous
// destination, success or not. Invoke it at most once per node.
func Bridge(ctx context.Context, ac *audio.Context, source audio.Node, opts Options) (*Session, error) {
	logger := log.With().Str("module", "loopback").Logger()

	newPlayer := opts.NewPlayer
	if newPlayer == nil {
		cfg := ac.Config()
		newPlayer = func() (playback.Player, error) {
			return playback.NewOtoPlayer(cfg.SampleRate, cfg.Channels)
		}
	}
	player, err := newPlayer()
	if err != nil {
		return nil, fmt.Errorf("create playback sink: %w", err)
	}

	dest := ac.NewStreamDestination()

	outbound, err := NewEndpoint("outbound", opts.RTCConfig)
	if err != nil {
		player.Close()
		return nil, fmt.Errorf("create outbound endpoint: %w", err)
	}
	inbound, err := NewEndpoint("inbound", opts.RTCConfig)
	if err != nil {
		player.Close()
		outbound.Close()
		return nil, fmt.Errorf("create inbound endpoint: %w", err)
	}
	Pair(outbound, inbound)

	var playOnce sync.Once
	inbound.OnTrack(func(track *webrtc.TrackRemote) {
		// Only the first delivered track becomes the playback source.
		playOnce.Do(func() {
			if err := player.Play(playback.NewTrackReader(track)); err != nil {
				logger.Error().Err(err).Msg("start loopback playback")
			}
		})
	})

	// Point of no return: source leaves the direct output path here.
	audio.Disconnect(source)
	audio.Connect(source, dest)

	pumpCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		ID:       uuid.NewString(),
		outbound: outbound,
		inbound:  inbound,
		player:   player,
		dest:     dest,
		cancel:   cancel,
	}

	fail := func(step string, err error) (*Session, error) {
		sess.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: uint32(ac.Config().SampleRate),
		Channels:  uint16(ac.Config().Channels),
	}, "audio", dest.Stream().ID())
	if err != nil {
		return fail("create loopback track", err)
	}
	sender, err := outbound.AddTrack(track)
	if err != nil {
		return fail("attach loopback track", err)
	}
	go drainRTCP(sender, logger)
	go pump(pumpCtx, dest.Stream(), track, ac.Quantum(), ac.FrameLen(), logger)

	offer, err := outbound.CreateOffer()
	if err != nil {
		return fail("create offer", err)
	}
	answer, err := inbound.Answer(offer)
	if err != nil {
		return fail("answer offer", err)
	}
	if err := outbound.SetRemote(answer); err != nil {
		return fail("apply answer", err)
	}

	logger.Info().Str("session", sess.ID).Msg("loopback negotiated")
	return sess, nil
}

// pump forwards rendered frames from the loopback destination into the
// outbound track, one sample per render quantum.
func pump(ctx context.Context, s *audio.Stream, track *webrtc.TrackLocalStaticSample, quantum time.Duration, frameLen int, logger zerolog.Logger) {
	ticker := time.NewTicker(quantum)
	defer ticker.Stop()
	frame := make(audio.Frame, frameLen)
	buf := make([]byte, 2*frameLen)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.ReadFrame(frame) {
				continue
			}
			n := frame.Bytes(buf)
			if err := track.WriteSample(media.Sample{Data: buf[:n], Duration: quantum}); err != nil {
				logger.Debug().Err(err).Msg("write loopback sample")
			}
		}
	}
}

// drainRTCP keeps the sender's RTCP path flowing; the reports themselves
// are only of debug interest on a loopback link.
func drainRTCP(sender *webrtc.RTPSender, logger zerolog.Logger) {
	for {
		pkts, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, pkt := range pkts {
			if nack, ok := pkt.(*rtcp.TransportLayerNack); ok {
				logger.Debug().Int("nacks", len(nack.Nacks)).Msg("loopback NACK")
			}
		}
	}
}
