package conf

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/lexiplay/soundtrack/internal/errors"
)

// SupportedBackends lists the accepted values for audio.device.backend.
var SupportedBackends = []string{"auto", "alsa", "pulse", "jack", "wasapi", "dsound", "coreaudio", "null"}

// ValidationError collects every problem found in one pass
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ErrorCategory lets the errors package classify validation failures.
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryValidation
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateAudioSettings(&settings.Audio)...)

	if settings.API.Enabled {
		if err := validateListen("api", settings.API.Listen); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}
	if settings.Metrics.Enabled {
		if err := validateListen("metrics", settings.Metrics.Listen); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}
	if settings.MQTT.Enabled {
		if err := validateMQTTSettings(&settings.MQTT); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}
	if settings.Events.BufferSize < 0 || settings.Events.Workers < 0 {
		ve.Errors = append(ve.Errors, "events.buffersize and events.workers must not be negative")
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("error_count", len(ve.Errors)).
			Build()
	}
	return nil
}

func validateAudioSettings(a *AudioSettings) []string {
	var problems []string

	if strings.TrimSpace(a.AmbientTrack) == "" {
		problems = append(problems, "audio.ambienttrack must not be empty")
	}
	if strings.TrimSpace(a.GameplayTrack) == "" {
		problems = append(problems, "audio.gameplaytrack must not be empty")
	}
	if a.LoadTimeout < 0 {
		problems = append(problems, "audio.loadtimeout must not be negative")
	}
	if !slices.Contains(SupportedBackends, strings.ToLower(a.Device.Backend)) {
		problems = append(problems, fmt.Sprintf("audio.device.backend %q is not one of %v", a.Device.Backend, SupportedBackends))
	}
	if a.Device.SampleRate <= 0 {
		problems = append(problems, "audio.device.samplerate must be positive")
	}
	if a.Device.Channels < 1 || a.Device.Channels > 2 {
		problems = append(problems, "audio.device.channels must be 1 or 2")
	}
	if a.Fetch.Timeout < 0 || a.Fetch.CacheTTL < 0 {
		problems = append(problems, "audio.fetch timeouts must not be negative")
	}
	if a.Fetch.RateLimit < 0 {
		problems = append(problems, "audio.fetch.ratelimit must not be negative")
	}
	if a.Fetch.MaxBytes <= 0 {
		problems = append(problems, "audio.fetch.maxbytes must be positive")
	}
	return problems
}

func validateListen(section, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s.listen %q is not a host:port address: %w", section, addr, err)
	}
	return nil
}

func validateMQTTSettings(m *MQTTSettings) error {
	u, err := url.Parse(m.Broker)
	if err != nil || u.Host == "" {
		return fmt.Errorf("mqtt.broker %q is not a valid broker URL", m.Broker)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("mqtt.broker scheme %q is not supported", u.Scheme)
	}
	if strings.TrimSpace(m.Topic) == "" {
		return fmt.Errorf("mqtt.topic must not be empty")
	}
	return nil
}
