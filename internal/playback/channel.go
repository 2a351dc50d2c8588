package playback

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
)

// Channel owns one playback resource through its asynchronous lifecycle.
// All methods are safe for concurrent use and return without waiting for a load.
type Channel struct {
	id          Identity
	loader      Loader
	observer    Observer
	log         logger.Logger
	loadTimeout time.Duration
	loop        bool

	mu         sync.Mutex
	state      State
	source     string
	generation uint64
	player     Player
	pending    *pendingLoad

	// inflight counts load goroutines that have not returned; idle is closed
	// when it drops to zero.
	inflight int
	idle     chan struct{}
}

// pendingLoad is the single live load of a channel.
type pendingLoad struct {
	generation uint64
	id         string
	source     string
	startedAt  time.Time
	cancel     context.CancelFunc
	timer      *time.Timer
}

func (p *pendingLoad) abandon() {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.cancel()
}

// NewChannel creates an idle channel. A nil observer or logger is replaced by a no-op.
func NewChannel(id Identity, loader Loader, opts ...Option) *Channel {
	o := buildOptions(opts)
	return &Channel{
		id:          id,
		loader:      loader,
		observer:    o.observer,
		log:         o.logger.With(logger.String("channel", id.String())),
		loadTimeout: o.loadTimeout,
		loop:        o.loop,
		state:       StateIdle,
	}
}

// Identity returns the channel's fixed identity.
func (c *Channel) Identity() Identity {
	return c.id
}

// State returns the current state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a consistent copy of the channel's observable fields.
func (c *Channel) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Channel:     c.id,
		State:       c.state,
		Source:      c.source,
		Generation:  c.generation,
		HasResource: c.player != nil,
	}
}

// Start requests looped playback of source. It is a no-op when source is
// already playing. Otherwise the current player is released, the generation
// advances and a new load is issued.
func (c *Channel) Start(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePlaying && c.source == source {
		c.log.Debug("start ignored, source already playing", logger.String("source", errors.ScrubLocator(source)))
		return
	}
	c.restartLocked(source)
}

// Restart is Start without the already-playing shortcut: the channel always
// reloads source under a new generation.
func (c *Channel) Restart(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restartLocked(source)
}

func (c *Channel) restartLocked(source string) {
	c.teardownLocked()
	c.generation++
	c.source = source
	c.transitionLocked(StatePreparing)
	c.beginLoadLocked()
}

// Pause pauses a playing channel. It is a no-op in any other state.
func (c *Channel) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		c.invalidStateLocked("pause")
		return
	}
	if err := c.player.Pause(); err != nil {
		c.playerFailedLocked(err, "pause")
		return
	}
	c.transitionLocked(StatePaused)
}

// Resume resumes a paused channel. It is a no-op in any other state;
// an idle or failed channel needs a fresh Start.
func (c *Channel) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		c.invalidStateLocked("resume")
		return
	}
	if err := c.player.Play(); err != nil {
		c.playerFailedLocked(err, "resume")
		return
	}
	c.transitionLocked(StatePlaying)
}

// Stop releases any player and moves to Idle. The generation is kept, so
// completions of earlier loads stay invalid. Idempotent.
func (c *Channel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	c.transitionLocked(StateIdle)
}

// Release performs the same cleanup as Stop and marks the channel Released.
// A later Start reinitializes it. Idempotent.
func (c *Channel) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	c.transitionLocked(StateReleased)
}

// Wait blocks until no load goroutine is outstanding or ctx is done.
func (c *Channel) Wait(ctx context.Context) error {
	c.mu.Lock()
	if c.inflight == 0 {
		c.mu.Unlock()
		return nil
	}
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) loadReturned() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
}

// beginLoadLocked issues the load for the current generation and source.
func (c *Channel) beginLoadLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	p := &pendingLoad{
		generation: c.generation,
		id:         uuid.NewString(),
		source:     c.source,
		startedAt:  time.Now(),
		cancel:     cancel,
	}
	if c.loadTimeout > 0 {
		p.timer = time.AfterFunc(c.loadTimeout, func() { c.expire(p) })
	}
	c.pending = p

	req := LoadRequest{
		Channel:    c.id,
		Source:     p.source,
		Loop:       c.loop,
		Generation: p.generation,
		LoadID:     p.id,
	}

	c.log.Debug("load issued",
		logger.String("source", p.source),
		logger.Uint64("generation", p.generation),
		logger.String("load_id", p.id))

	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	go func() {
		defer c.loadReturned()
		player, err := c.loader.Load(ctx, req)
		c.complete(p, player, err)
	}()
}

// complete applies a load result if it is still live, otherwise discards it.
func (c *Channel) complete(p *pendingLoad, player Player, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(p.startedAt)

	if p.generation != c.generation || c.state != StatePreparing {
		c.discardLocked(p, player, err, elapsed)
		return
	}

	p.abandon()
	c.pending = nil

	if err == nil && player == nil {
		err = ErrNoPlayer
	}
	if err != nil {
		if player != nil {
			c.releasePlayer(player)
		}
		ee := loadFailure(err, c.id, p.source, p.generation, elapsed)
		c.log.Error("load failed",
			logger.String("source", errors.ScrubLocator(p.source)),
			logger.Uint64("generation", p.generation),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		c.emitLocked(Event{Kind: EventLoadFailed, From: StatePreparing, To: StateFailed, Duration: elapsed, Err: ee, LoadID: p.id})
		c.transitionLocked(StateFailed)
		return
	}

	c.player = player
	c.emitLocked(Event{Kind: EventLoadSucceeded, From: StatePreparing, To: StatePlaying, Duration: elapsed, LoadID: p.id})

	if err := player.Play(); err != nil {
		c.playerFailedLocked(err, "play")
		return
	}

	c.log.Info("playback started",
		logger.String("source", p.source),
		logger.Uint64("generation", p.generation),
		logger.Duration("load_time", elapsed))
	c.transitionLocked(StatePlaying)
}

// discardLocked handles a stale completion: the player it carried is released
// and nothing else changes.
func (c *Channel) discardLocked(p *pendingLoad, player Player, err error, elapsed time.Duration) {
	if player != nil {
		c.releasePlayer(player)
	}
	c.log.Debug("stale load completion discarded",
		logger.Uint64("load_generation", p.generation),
		logger.Uint64("generation", c.generation),
		logger.String("state", c.state.String()),
		logger.Bool("had_player", player != nil),
		logger.Error(err))
	c.emitLocked(Event{
		Kind:       EventStaleCompletion,
		Source:     p.source,
		Generation: p.generation,
		From:       c.state,
		To:         c.state,
		Duration:   elapsed,
		Err:        err,
		LoadID:     p.id,
	})
}

// expire fails a load that outlived the load timeout. Its eventual completion
// becomes stale because the channel is no longer Preparing.
func (c *Channel) expire(p *pendingLoad) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != p || p.generation != c.generation || c.state != StatePreparing {
		return
	}

	p.cancel()
	c.pending = nil

	elapsed := time.Since(p.startedAt)
	ee := loadFailure(ErrLoadTimeout, c.id, p.source, p.generation, elapsed)
	c.log.Error("load timed out",
		logger.String("source", errors.ScrubLocator(p.source)),
		logger.Uint64("generation", p.generation),
		logger.Duration("timeout", c.loadTimeout))
	c.emitLocked(Event{Kind: EventLoadTimeout, From: StatePreparing, To: StateFailed, Duration: elapsed, Err: ee, LoadID: p.id})
	c.transitionLocked(StateFailed)
}

// teardownLocked abandons the live load and releases the player, if any.
func (c *Channel) teardownLocked() {
	if c.pending != nil {
		c.pending.abandon()
		c.pending = nil
	}
	if c.player != nil {
		player := c.player
		c.player = nil
		if err := player.Stop(); err != nil {
			c.log.Warn("player stop failed", logger.Error(err))
		}
		c.releasePlayer(player)
	}
}

// playerFailedLocked releases the player after a native error and fails the channel.
func (c *Channel) playerFailedLocked(err error, op string) {
	ee := playerFailure(err, c.id, op)
	c.log.Error("player error", logger.String("operation", op), logger.Error(err))

	if c.player != nil {
		player := c.player
		c.player = nil
		c.releasePlayer(player)
	}

	c.emitLocked(Event{Kind: EventPlayerError, From: c.state, To: StateFailed, Err: ee})
	c.transitionLocked(StateFailed)
}

func (c *Channel) releasePlayer(player Player) {
	if err := player.Release(); err != nil {
		c.log.Warn("player release failed", logger.Error(err))
	}
}

func (c *Channel) invalidStateLocked(op string) {
	c.log.Debug("call has no effect in current state",
		logger.String("operation", op),
		logger.String("state", c.state.String()))
}

func (c *Channel) transitionLocked(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.log.Debug("state transition",
		logger.String("from", from.String()),
		logger.String("to", to.String()),
		logger.Uint64("generation", c.generation))
	c.emitLocked(Event{Kind: EventTransition, From: from, To: to})
}

// emitLocked fills in the channel fields of ev and hands it to the observer.
func (c *Channel) emitLocked(ev Event) {
	if c.observer == nil {
		return
	}
	ev.Channel = c.id
	if ev.Source == "" {
		ev.Source = c.source
	}
	if ev.Generation == 0 {
		ev.Generation = c.generation
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	c.observer.Observe(ev)
}
