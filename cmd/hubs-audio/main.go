package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/manniru/hubs/internal/app"
	"github.com/manniru/hubs/internal/audio"
	"github.com/manniru/hubs/internal/config"
	"github.com/manniru/hubs/internal/mixgraph"
	"github.com/manniru/hubs/internal/playback"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ac := audio.NewContext(cfg.AudioConfig())

	// The scene's listener mix: a gain-bearing node feeding the main output.
	// In a full client the spatializer would feed this node; here it is the
	// bridge's input.
	listener := ac.NewGain()
	audio.Connect(listener, ac.Destination())

	engine := app.NewEngine(cfg, ac, mixgraph.New(), listener)
	defer engine.Close()

	// Drain the main output into the platform audio device. Best effort: a
	// headless host has no device and the rest keeps working.
	monitor := playback.NewStreamReader(ac.Destination().Stream(), cfg.FrameDuration)
	defer monitor.Close()
	if player, err := playback.NewOtoPlayer(cfg.SampleRate, cfg.Channels); err != nil {
		log.Warn().Err(err).Msg("no audio device, main output unmonitored")
	} else {
		defer player.Close()
		if err := player.Play(monitor); err != nil {
			log.Warn().Err(err).Msg("main output playback failed")
		}
	}

	if cfg.AutoStart {
		engine.ObserveInteraction(ctx)
	} else {
		// The first user interaction is reported by the embedding layer;
		// standalone, SIGUSR1 stands in for it.
		interact := make(chan os.Signal, 1)
		signal.Notify(interact, syscall.SIGUSR1)
		go func() {
			select {
			case <-interact:
				engine.ObserveInteraction(ctx)
			case <-ctx.Done():
			}
			signal.Stop(interact)
		}()
		log.Info().Msg("suspended, waiting for interaction (SIGUSR1)")
	}

	// Poll the analyser for the level meter.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if levels := engine.Levels(); levels != nil {
					log.Debug().Int("window", len(levels)).Msg("level readback")
				}
			}
		}
	}()

	log.Info().Msg("hubs audio bridge started")
	<-ctx.Done()
	log.Info().Msg("shutting down")
}
