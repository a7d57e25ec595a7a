package loopback

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateBufferedBeforeRemoteDescription(t *testing.T) {
	e, err := NewEndpoint("test", webrtc.Configuration{})
	require.NoError(t, err)
	defer e.Close()

	// No remote description yet: the candidate must be queued, not applied.
	err = e.AddCandidate(webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 40000 typ host"})
	require.NoError(t, err)
	assert.Equal(t, 1, e.PendingCandidates())
}

func newAudioTrack(t *testing.T) *webrtc.TrackLocalStaticSample {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	}, "audio", "loopback-test")
	require.NoError(t, err)
	return track
}

func TestOfferIsLocallyCommitted(t *testing.T) {
	offerer, err := NewEndpoint("offerer", webrtc.Configuration{})
	require.NoError(t, err)
	defer offerer.Close()
	_, err = offerer.AddTrack(newAudioTrack(t))
	require.NoError(t, err)

	offer, err := offerer.CreateOffer()
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeOffer, offer.Type)
	assert.Equal(t, webrtc.SignalingStateHaveLocalOffer, offerer.SignalingState())
}

func TestAnswerFlushesQueuedCandidates(t *testing.T) {
	offerer, err := NewEndpoint("offerer", webrtc.Configuration{})
	require.NoError(t, err)
	defer offerer.Close()
	answerer, err := NewEndpoint("answerer", webrtc.Configuration{})
	require.NoError(t, err)
	defer answerer.Close()

	err = answerer.AddCandidate(webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 40001 typ host"})
	require.NoError(t, err)
	require.Equal(t, 1, answerer.PendingCandidates())

	_, err = offerer.AddTrack(newAudioTrack(t))
	require.NoError(t, err)
	offer, err := offerer.CreateOffer()
	require.NoError(t, err)
	answer, err := answerer.Answer(offer)
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeAnswer, answer.Type)
	assert.Equal(t, 0, answerer.PendingCandidates())

	require.NoError(t, offerer.SetRemote(answer))
	assert.Equal(t, webrtc.SignalingStateStable, offerer.SignalingState())
}
