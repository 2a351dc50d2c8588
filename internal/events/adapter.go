package events

import (
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/playback"
)

// LogConsumer writes every event to a logger. Transitions go to Info, the
// failure kinds to Warn and the rest to Debug.
type LogConsumer struct {
	log logger.Logger
}

// NewLogConsumer returns a LogConsumer writing to log.
func NewLogConsumer(log logger.Logger) *LogConsumer {
	return &LogConsumer{log: log}
}

// Name implements Consumer.
func (c *LogConsumer) Name() string { return "log" }

// ProcessEvent implements Consumer.
func (c *LogConsumer) ProcessEvent(ev playback.Event) error {
	fields := []logger.Field{
		logger.String("channel", ev.Channel.String()),
		logger.String("kind", string(ev.Kind)),
		logger.Uint64("generation", ev.Generation),
	}
	if ev.LoadID != "" {
		fields = append(fields, logger.String("load_id", ev.LoadID))
	}
	if ev.Duration > 0 {
		fields = append(fields, logger.Duration("duration", ev.Duration))
	}

	switch ev.Kind {
	case playback.EventTransition:
		fields = append(fields,
			logger.String("from", ev.From.String()),
			logger.String("to", ev.To.String()))
		c.log.Info("channel state changed", fields...)
	case playback.EventLoadFailed, playback.EventLoadTimeout, playback.EventPlayerError:
		if ev.Err != nil {
			fields = append(fields, logger.Error(ev.Err))
		}
		c.log.Warn("playback problem", fields...)
	default:
		c.log.Debug("playback event", fields...)
	}
	return nil
}
