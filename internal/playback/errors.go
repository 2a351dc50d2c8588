package playback

import (
	"fmt"
	"time"

	"github.com/lexiplay/soundtrack/internal/errors"
)

const componentName = "playback"

var (
	// ErrLoadTimeout marks a load that did not complete within the channel's load timeout.
	ErrLoadTimeout = errors.NewStd("load timed out")

	// ErrNoPlayer marks a load that reported success without a player.
	ErrNoPlayer = errors.NewStd("loader returned no player")
)

// loadFailure wraps a failed or timed out load with channel context.
func loadFailure(err error, id Identity, source string, generation uint64, elapsed time.Duration) *errors.EnhancedError {
	category := errors.CategoryAudioSource
	if errors.Is(err, ErrLoadTimeout) {
		category = errors.CategoryTimeout
	}
	return errors.New(fmt.Errorf("%s channel load failed: %w", id, err)).
		Component(componentName).
		Category(category).
		Priority(errors.PriorityMedium).
		Context("channel", id.String()).
		Context("generation", generation).
		SourceContext(source).
		Timing("load", elapsed).
		Build()
}

// playerFailure wraps an error returned by the native player.
func playerFailure(err error, id Identity, op string) *errors.EnhancedError {
	return errors.New(fmt.Errorf("%s channel %s failed: %w", id, op, err)).
		Component(componentName).
		Category(errors.CategoryAudioDevice).
		Context("channel", id.String()).
		Context("operation", op).
		Build()
}
