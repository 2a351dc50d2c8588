// Package lifecycle maps host application events onto orchestrator calls.
package lifecycle

import (
	"slices"
	"strings"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
)

const componentName = "lifecycle"

// Host event names accepted by Dispatch.
const (
	EventForeground         = "foreground"
	EventBackground         = "background"
	EventGameplayEnter      = "gameplay-enter"
	EventGameplayExit       = "gameplay-exit"
	EventGameplayExitResume = "gameplay-exit-resume"
)

// Events lists the names accepted by Dispatch.
var Events = []string{
	EventForeground,
	EventBackground,
	EventGameplayEnter,
	EventGameplayExit,
	EventGameplayExitResume,
}

// Orchestrator is the subset of *playback.Orchestrator driven by host events.
type Orchestrator interface {
	StartAmbient(source string)
	StartGameplay(source string)
	StopGameplay()
	ResumeAmbient()
	ReleaseAll()
}

// Adapter is the only caller of the orchestrator in a running process.
type Adapter struct {
	// AmbientTrack is started whenever the app enters the foreground.
	AmbientTrack string
	// GameplayTrack is reloaded on every gameplay enter.
	GameplayTrack string
	// ResumeAmbientOnExit decides whether a plain gameplay-exit resumes
	// ambient audio. gameplay-exit-resume always does.
	ResumeAmbientOnExit bool

	orch Orchestrator
	log  logger.Logger
}

// NewAdapter returns an Adapter driving orch.
func NewAdapter(orch Orchestrator, ambientTrack, gameplayTrack string, log logger.Logger) *Adapter {
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	return &Adapter{
		AmbientTrack:  ambientTrack,
		GameplayTrack: gameplayTrack,
		orch:          orch,
		log:           log,
	}
}

// Foreground starts the ambient track.
func (a *Adapter) Foreground() {
	a.log.Debug("app entered foreground")
	a.orch.StartAmbient(a.AmbientTrack)
}

// Background tears down both channels.
func (a *Adapter) Background() {
	a.log.Debug("app left foreground")
	a.orch.ReleaseAll()
}

// GameplayEnter pauses ambient audio and reloads the gameplay track.
func (a *Adapter) GameplayEnter() {
	a.log.Debug("gameplay entered")
	a.orch.StartGameplay(a.GameplayTrack)
}

// GameplayExit releases gameplay audio and, when resume is set, resumes the
// paused ambient track.
func (a *Adapter) GameplayExit(resume bool) {
	a.log.Debug("gameplay exited", logger.Bool("resume_ambient", resume))
	a.orch.StopGameplay()
	if resume {
		a.orch.ResumeAmbient()
	}
}

// Dispatch runs the handler for a named host event. Names are matched
// case-insensitively; unknown names return a validation error and touch
// nothing.
func (a *Adapter) Dispatch(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case EventForeground:
		a.Foreground()
	case EventBackground:
		a.Background()
	case EventGameplayEnter:
		a.GameplayEnter()
	case EventGameplayExit:
		a.GameplayExit(a.ResumeAmbientOnExit)
	case EventGameplayExitResume:
		a.GameplayExit(true)
	default:
		return errors.Newf("unknown lifecycle event %q", name).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("event", name).
			Context("valid_events", strings.Join(Events, ",")).
			Build()
	}
	return nil
}

// Valid reports whether Dispatch accepts name.
func Valid(name string) bool {
	return slices.Contains(Events, strings.ToLower(strings.TrimSpace(name)))
}
