// Package conf loads soundtrack settings from defaults, config.yaml and SOUNDTRACK_* environment variables.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. SOUNDTRACK_AUDIO_LOADTIMEOUT.
const EnvPrefix = "SOUNDTRACK"

// Settings contains all configuration options for the service.
type Settings struct {
	Debug bool `yaml:"debug"` // true to enable debug logging

	Main struct {
		Name string `yaml:"name"` // instance name, used as MQTT client id suffix and Sentry server name
	} `yaml:"main"`

	Logging logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`

	Audio   AudioSettings   `yaml:"audio"`
	API     ServerSettings  `yaml:"api"`
	Metrics ServerSettings  `yaml:"metrics"`
	MQTT    MQTTSettings    `yaml:"mqtt"`
	Sentry  SentrySettings  `yaml:"sentry"`
	Events  EventBusSetting `yaml:"events"`
}

// AudioSettings holds the two track locators and playback policy.
type AudioSettings struct {
	AmbientTrack        string         `yaml:"ambienttrack"`        // locator of the app ambient track
	GameplayTrack       string         `yaml:"gameplaytrack"`       // locator of the gameplay track
	LoadTimeout         time.Duration  `yaml:"loadtimeout"`         // bound on Preparing, 0 disables
	Loop                bool           `yaml:"loop"`                // loop both tracks
	ResumeAmbientOnExit bool           `yaml:"resumeambientonexit"` // host resumes ambient after gameplay exit
	Device              DeviceSettings `yaml:"device"`
	Fetch               FetchSettings  `yaml:"fetch"`
}

// DeviceSettings selects the playback backend and output format.
type DeviceSettings struct {
	Backend    string `yaml:"backend"` // auto, alsa, pulse, jack, wasapi, coreaudio or null
	SampleRate int    `yaml:"samplerate"`
	Channels   int    `yaml:"channels"`
}

// FetchSettings configures how track locators are downloaded.
type FetchSettings struct {
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cachettl"`
	RateLimit float64       `yaml:"ratelimit"` // requests per second, 0 disables
	Burst     int           `yaml:"burst"`
	MaxBytes  int64         `yaml:"maxbytes"`
	UserAgent string        `yaml:"useragent"`
}

// ServerSettings is shared by the HTTP API and the metrics endpoint.
type ServerSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// MQTTSettings configures the channel state publisher.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientid"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	Retain   bool   `yaml:"retain"`
}

// SentrySettings configures opt-in error telemetry.
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Debug       bool   `yaml:"debug"`
	Environment string `yaml:"environment"`
}

// EventBusSetting sizes the asynchronous playback event bus.
type EventBusSetting struct {
	BufferSize int `yaml:"buffersize"`
	Workers    int `yaml:"workers"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration through the global viper instance, so flags bound
// by the command layer take part in resolution. A non-empty configFile
// replaces the search paths and must exist.
func Load(configFile string) (*Settings, error) {
	var (
		settings *Settings
		err      error
	)
	if configFile != "" {
		settings, err = LoadFile(viper.GetViper(), configFile)
	} else {
		settings, err = LoadFrom(viper.GetViper(), GetDefaultConfigPaths()...)
	}
	if err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

// LoadFrom resolves settings using v. A missing config file is not an error.
func LoadFrom(v *viper.Viper, configPaths ...string) (*Settings, error) {
	initViper(v, configPaths)
	return load(v, false)
}

// LoadFile resolves settings using v and the config file at path.
func LoadFile(v *viper.Viper, path string) (*Settings, error) {
	initViper(v, nil)
	v.SetConfigFile(path)
	return load(v, true)
}

func load(v *viper.Viper, required bool) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if required || !errors.As(err, &notFound) {
			return nil, errors.New(fmt.Errorf("error reading config file: %w", err)).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("operation", "read-config").
				Build()
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}

	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

func initViper(v *viper.Viper, configPaths []string) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultConfig(v)
}

// Setting returns the most recently loaded settings, or nil.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "windows" {
			paths = append(paths, filepath.Join(home, "AppData", "Roaming", "soundtrack"))
		} else {
			paths = append(paths, filepath.Join(home, ".config", "soundtrack"))
		}
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/soundtrack")
	}
	return paths
}
