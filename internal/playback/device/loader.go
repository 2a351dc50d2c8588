package device

import (
	"context"
	"fmt"
	"time"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/playback"
)

// Fetcher resolves a locator to file bytes.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// PlayerFactory opens a native player for decoded audio.
type PlayerFactory interface {
	NewPlayer(pcm *PCM, loop bool) (playback.Player, error)
}

// Loader implements playback.Loader: fetch, decode, then open a player.
type Loader struct {
	fetcher Fetcher
	players PlayerFactory
	log     logger.Logger
}

// NewLoader returns a Loader.
func NewLoader(fetcher Fetcher, players PlayerFactory, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	return &Loader{fetcher: fetcher, players: players, log: log}
}

// Load implements playback.Loader. It checks ctx between stages so a
// superseded load stops before opening a device.
func (l *Loader) Load(ctx context.Context, req playback.LoadRequest) (playback.Player, error) {
	log := l.log.With(
		logger.String("channel", req.Channel.String()),
		logger.String("load_id", req.LoadID))

	start := time.Now()
	data, err := l.fetcher.Fetch(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err, "fetch")
	}

	pcm, err := Decode(data, req.Source)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err, "decode")
	}

	player, err := l.players.NewPlayer(pcm, req.Loop)
	if err != nil {
		return nil, err
	}

	log.Debug("track ready",
		logger.Int("sample_rate", pcm.SampleRate),
		logger.Int("channels", pcm.Channels),
		logger.Duration("track_length", pcm.Duration()),
		logger.Duration("elapsed", time.Since(start)))
	return player, nil
}

func cancelled(err error, stage string) error {
	return errors.New(fmt.Errorf("load cancelled after %s: %w", stage, err)).
		Component(componentName).
		Category(errors.CategoryCancellation).
		Context("stage", stage).
		Build()
}
