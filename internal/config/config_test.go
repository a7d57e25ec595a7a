package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "nonexistent")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 2, cfg.Channels)
	assert.Equal(t, 20*time.Millisecond, cfg.FrameDuration)
	assert.Equal(t, 1024, cfg.AnalyserWindow)
	assert.True(t, cfg.LoopbackAEC)
	assert.False(t, cfg.AutoStart)
	assert.NotEmpty(t, cfg.STUNServers)
}

func TestAudioConfigMapping(t *testing.T) {
	cfg := &Config{
		SampleRate:     8000,
		Channels:       1,
		FrameDuration:  10 * time.Millisecond,
		StreamDepth:    4,
		AnalyserWindow: 32,
	}
	ac := cfg.AudioConfig()
	assert.Equal(t, 8000, ac.SampleRate)
	assert.Equal(t, 80, ac.FrameLen())
	assert.Equal(t, 32, ac.AnalyserWindow)
}
