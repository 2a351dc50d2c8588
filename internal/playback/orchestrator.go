package playback

import (
	"context"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
)

// Orchestrator owns the ambient and gameplay channels and applies the policy
// between them. It has no state of its own. Construct one per process at the
// composition root and hand it to the lifecycle adapter.
type Orchestrator struct {
	ambient  *Channel
	gameplay *Channel
	log      logger.Logger
}

// New creates an orchestrator whose channels load through loader.
func New(loader Loader, opts ...Option) *Orchestrator {
	o := buildOptions(opts)
	shared := []Option{
		WithLogger(o.logger),
		WithObserver(o.observer),
		WithLoadTimeout(o.loadTimeout),
		WithLoop(o.loop),
	}
	return &Orchestrator{
		ambient:  NewChannel(Ambient, loader, shared...),
		gameplay: NewChannel(Gameplay, loader, shared...),
		log:      o.logger,
	}
}

// StartAmbient starts the ambient track regardless of the gameplay channel.
func (o *Orchestrator) StartAmbient(source string) {
	o.log.Debug("start ambient", logger.String("source", errors.ScrubLocator(source)))
	o.ambient.Start(source)
}

// StartGameplay pauses ambient audio, then restarts the gameplay channel.
// Gameplay is always reloaded, never resumed.
func (o *Orchestrator) StartGameplay(source string) {
	o.log.Debug("start gameplay", logger.String("source", errors.ScrubLocator(source)))
	o.ambient.Pause()
	o.gameplay.Restart(source)
}

// StopGameplay releases the gameplay channel. Ambient audio stays paused until
// the caller invokes ResumeAmbient.
func (o *Orchestrator) StopGameplay() {
	o.log.Debug("stop gameplay")
	o.gameplay.Release()
}

// ResumeAmbient resumes a paused ambient channel.
func (o *Orchestrator) ResumeAmbient() {
	o.log.Debug("resume ambient")
	o.ambient.Resume()
}

// ReleaseAll releases ambient then gameplay, whatever their states.
func (o *Orchestrator) ReleaseAll() {
	o.log.Debug("release all")
	o.ambient.Release()
	o.gameplay.Release()
}

// Ambient returns the ambient channel.
func (o *Orchestrator) Ambient() *Channel {
	return o.ambient
}

// Gameplay returns the gameplay channel.
func (o *Orchestrator) Gameplay() *Channel {
	return o.gameplay
}

// Snapshot returns both channel snapshots, ambient first.
func (o *Orchestrator) Snapshot() []Snapshot {
	return []Snapshot{o.ambient.Snapshot(), o.gameplay.Snapshot()}
}

// Shutdown releases both channels and waits for outstanding loads to return.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.ReleaseAll()
	return errors.Join(o.ambient.Wait(ctx), o.gameplay.Wait(ctx))
}
