// Package device plays decoded tracks on the system audio output through miniaudio.
package device

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/playback"
)

const componentName = "device"

// EngineConfig selects the backend and output format shared by every player.
type EngineConfig struct {
	Backend    string
	SampleRate int
	Channels   int
}

// Engine owns one miniaudio context. Players created from it must be released
// before Close.
type Engine struct {
	cfg EngineConfig
	log logger.Logger

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	closed bool
}

// ParseBackend maps a configuration name to a malgo backend list; "auto" and
// "" let miniaudio choose.
func ParseBackend(name string) ([]malgo.Backend, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return nil, nil
	case "alsa":
		return []malgo.Backend{malgo.BackendAlsa}, nil
	case "pulse", "pulseaudio":
		return []malgo.Backend{malgo.BackendPulseaudio}, nil
	case "jack":
		return []malgo.Backend{malgo.BackendJack}, nil
	case "wasapi":
		return []malgo.Backend{malgo.BackendWasapi}, nil
	case "dsound":
		return []malgo.Backend{malgo.BackendDsound}, nil
	case "coreaudio":
		return []malgo.Backend{malgo.BackendCoreaudio}, nil
	case "null":
		return []malgo.Backend{malgo.BackendNull}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", name)
	}
}

// NewEngine initializes the audio context.
func NewEngine(cfg EngineConfig, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.Global().Module(componentName)
	}

	backends, err := ParseBackend(cfg.Backend)
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Context("backend", cfg.Backend).
			Build()
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", logger.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryAudioDevice).
			Context("backend", cfg.Backend).
			Context("operation", "init_context").
			Build()
	}

	log.Info("audio engine initialized",
		logger.String("backend", cfg.Backend),
		logger.Int("sample_rate", cfg.SampleRate),
		logger.Int("channels", cfg.Channels))

	return &Engine{cfg: cfg, log: log, ctx: ctx}, nil
}

// NewPlayer opens a paused playback device for pcm. The device is not started
// until Play.
func (e *Engine) NewPlayer(pcm *PCM, loop bool) (playback.Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.Newf("audio engine closed").
			Component(componentName).
			Category(errors.CategoryState).
			Build()
	}

	pcm = pcm.Convert(e.cfg.SampleRate, e.cfg.Channels)
	cur := newCursor(pcm, loop)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(pcm.Channels)
	deviceConfig.SampleRate = uint32(pcm.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			cur.fill(out, int(frameCount))
		},
	}

	dev, err := malgo.InitDevice(e.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_device").
			Context("sample_rate", pcm.SampleRate).
			Context("channels", pcm.Channels).
			Build()
	}

	return newPlayer(&malgoDevice{dev: dev}, cur), nil
}

// Close frees the audio context.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	err := e.ctx.Uninit()
	e.ctx.Free()
	e.ctx = nil
	return err
}

// malgoDevice adapts *malgo.Device to outputDevice.
type malgoDevice struct {
	dev *malgo.Device
}

func (d *malgoDevice) Start() error { return d.dev.Start() }
func (d *malgoDevice) Stop() error  { return d.dev.Stop() }
func (d *malgoDevice) Uninit()      { d.dev.Uninit() }
