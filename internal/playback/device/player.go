package device

import (
	"sync"

	"github.com/lexiplay/soundtrack/internal/errors"
)

// outputDevice is the part of a native playback device a Player drives.
type outputDevice interface {
	Start() error
	Stop() error
	Uninit()
}

// Player plays one decoded track on one output device.
type Player struct {
	mu       sync.Mutex
	dev      outputDevice
	cur      *cursor
	running  bool
	released bool
}

func newPlayer(dev outputDevice, cur *cursor) *Player {
	return &Player{dev: dev, cur: cur}
}

// Play starts the device. Playing a running player is a no-op.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return errReleased()
	}
	if p.running {
		return nil
	}
	if p.cur.done() {
		p.cur.rewind()
	}
	if err := p.dev.Start(); err != nil {
		return err
	}
	p.running = true
	return nil
}

// Pause stops the device and keeps the position.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return errReleased()
	}
	if !p.running {
		return nil
	}
	if err := p.dev.Stop(); err != nil {
		return err
	}
	p.running = false
	return nil
}

// Stop stops the device and rewinds to the start of the track.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return nil
	}
	var err error
	if p.running {
		err = p.dev.Stop()
		p.running = false
	}
	p.cur.rewind()
	return err
}

// Release frees the device. Later calls are no-ops.
func (p *Player) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return nil
	}
	p.released = true
	p.running = false
	p.dev.Uninit()
	return nil
}

func errReleased() error {
	return errors.Newf("player already released").
		Component(componentName).
		Category(errors.CategoryState).
		Build()
}
