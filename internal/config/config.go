package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/manniru/hubs/internal/audio"
)

type Config struct {
	SampleRate     int           `mapstructure:"sample_rate"`
	Channels       int           `mapstructure:"channels"`
	FrameDuration  time.Duration `mapstructure:"frame_duration"`
	StreamDepth    int           `mapstructure:"stream_depth"`
	AnalyserWindow int           `mapstructure:"analyser_window"`

	// LoopbackAEC enables the local peer-connection loopback. The bridge is
	// a workaround for platforms whose echo canceller ignores locally
	// synthesized audio; platform detection belongs to the embedding layer,
	// so here it is just a switch.
	LoopbackAEC bool `mapstructure:"loopback_aec"`

	// STUNServers are applied to the loopback endpoints. The pair connects
	// over host candidates; STUN is a fallback only.
	STUNServers []string `mapstructure:"stun_servers"`

	// AutoStart skips waiting for an external interaction event.
	AutoStart bool `mapstructure:"auto_start"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("sample_rate", 48000)
	v.SetDefault("channels", 2)
	v.SetDefault("frame_duration", "20ms")
	v.SetDefault("stream_depth", 50)
	v.SetDefault("analyser_window", 1024)
	v.SetDefault("loopback_aec", true)
	v.SetDefault("stun_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("auto_start", false)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// AudioConfig maps the loaded settings onto the audio context parameters.
func (c *Config) AudioConfig() audio.Config {
	return audio.Config{
		SampleRate:     c.SampleRate,
		Channels:       c.Channels,
		Quantum:        c.FrameDuration,
		StreamDepth:    c.StreamDepth,
		AnalyserWindow: c.AnalyserWindow,
	}
}
