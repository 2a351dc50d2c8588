// Package playback owns the two background audio channels and the policy between them.
//
// A Channel drives one native player through an asynchronous lifecycle:
//
//	Idle → Preparing → Playing ⇄ Paused → Released
//	              ↘ Failed
//
// Every Start increments the channel's generation and issues a load on its own
// goroutine. A load completion only takes effect while its generation is still
// current and the channel is still Preparing; anything else is a stale
// completion and the player it carried is released on the spot. All state,
// the generation and the player handle are guarded by one mutex per channel,
// so a caller and a completing load never observe each other half-way.
//
// The Orchestrator holds exactly two channels, ambient and gameplay, and keeps
// no state of its own:
//
//	orch := playback.New(loader, playback.WithLoadTimeout(30*time.Second))
//	orch.StartAmbient(ambientURI)   // app foreground
//	orch.StartGameplay(gameplayURI) // pauses ambient first
//	orch.StopGameplay()             // ambient stays paused
//	orch.ResumeAmbient()
//	orch.ReleaseAll()               // app background
//
// No operation returns an error. Load failures, player errors and stale
// completions are reported through the logger and the Observer.
package playback
