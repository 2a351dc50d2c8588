package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared by defaults and validation.
const (
	DefaultLoadTimeout = 30 * time.Second
	DefaultSampleRate  = 48000
	DefaultChannels    = 2
	DefaultMaxBytes    = 64 << 20
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("main.name", "soundtrack")

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/soundtrack.log")
	v.SetDefault("logging.fileoutput.level", "info")

	v.SetDefault("audio.ambienttrack", "https://cdn.lexiplay.app/audio/ambient.wav")
	v.SetDefault("audio.gameplaytrack", "https://cdn.lexiplay.app/audio/gameplay.wav")
	v.SetDefault("audio.loadtimeout", DefaultLoadTimeout)
	v.SetDefault("audio.loop", true)
	v.SetDefault("audio.resumeambientonexit", true)
	v.SetDefault("audio.device.backend", "auto")
	v.SetDefault("audio.device.samplerate", DefaultSampleRate)
	v.SetDefault("audio.device.channels", DefaultChannels)
	v.SetDefault("audio.fetch.timeout", 20*time.Second)
	v.SetDefault("audio.fetch.cachettl", 30*time.Minute)
	v.SetDefault("audio.fetch.ratelimit", 2.0)
	v.SetDefault("audio.fetch.burst", 2)
	v.SetDefault("audio.fetch.maxbytes", DefaultMaxBytes)
	v.SetDefault("audio.fetch.useragent", "soundtrack/1.0")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.listen", "127.0.0.1:8090")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen", "127.0.0.1:9090")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientid", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "soundtrack")
	v.SetDefault("mqtt.retain", true)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.debug", false)
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("events.buffersize", 256)
	v.SetDefault("events.workers", 2)
}
