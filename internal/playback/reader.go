package playback

import (
	"io"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/manniru/hubs/internal/audio"
)

// TrackReader adapts a remote WebRTC track into an io.Reader over its RTP
// payloads. Payload bytes are passed through opaquely; no decoding happens
// here.
type TrackReader struct {
	track   *webrtc.TrackRemote
	rest    []byte
	lastSeq uint16
	gaps    int
}

func NewTrackReader(track *webrtc.TrackRemote) *TrackReader {
	return &TrackReader{track: track}
}

func (r *TrackReader) Read(p []byte) (int, error) {
	for len(r.rest) == 0 {
		pkt, _, err := r.track.ReadRTP()
		if err != nil {
			return 0, err
		}
		r.consume(pkt)
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}

func (r *TrackReader) consume(pkt *rtp.Packet) {
	if r.lastSeq != 0 && pkt.SequenceNumber != r.lastSeq+1 {
		r.gaps++
	}
	r.lastSeq = pkt.SequenceNumber
	r.rest = pkt.Payload
}

// Gaps counts observed RTP sequence discontinuities.
func (r *TrackReader) Gaps() int { return r.gaps }

// StreamReader adapts an audio.Stream into an io.Reader of little-endian
// 16-bit PCM. When the stream runs dry it waits one polling interval instead
// of returning EOF, so a player keeps draining a live stream.
type StreamReader struct {
	stream *audio.Stream
	poll   time.Duration
	frame  audio.Frame
	buf    []byte
	rest   []byte
	closed chan struct{}
}

func NewStreamReader(s *audio.Stream, poll time.Duration) *StreamReader {
	frameLen := s.FrameLen()
	return &StreamReader{
		stream: s,
		poll:   poll,
		frame:  make(audio.Frame, frameLen),
		buf:    make([]byte, 2*frameLen),
		closed: make(chan struct{}),
	}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	for len(r.rest) == 0 {
		select {
		case <-r.closed:
			return 0, io.EOF
		default:
		}
		if !r.stream.ReadFrame(r.frame) {
			time.Sleep(r.poll)
			continue
		}
		n := r.frame.Bytes(r.buf)
		r.rest = r.buf[:n]
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}

// Close makes subsequent Reads return io.EOF.
func (r *StreamReader) Close() error {
	select {
	case <-r.closed:
	default:
		close(r.closed)
	}
	return nil
}
