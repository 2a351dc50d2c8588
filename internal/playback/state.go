package playback

import "fmt"

// State is the lifecycle position of a Channel.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StatePlaying
	StatePaused
	StateFailed
	StateReleased
)

// AllStates lists every state in declaration order.
var AllStates = []State{StateIdle, StatePreparing, StatePlaying, StatePaused, StateFailed, StateReleased}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFailed:
		return "failed"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name for JSON and YAML encoders.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range AllStates {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// HoldsResource reports whether a player handle may exist in this state.
func (s State) HoldsResource() bool {
	return s == StatePreparing || s == StatePlaying || s == StatePaused
}

// Identity names one of the two channels. It never changes after construction.
type Identity int

const (
	Ambient Identity = iota
	Gameplay
)

func (id Identity) String() string {
	switch id {
	case Ambient:
		return "ambient"
	case Gameplay:
		return "gameplay"
	default:
		return fmt.Sprintf("channel(%d)", int(id))
	}
}

// MarshalText renders the channel name for JSON and YAML encoders.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a channel name produced by MarshalText.
func (id *Identity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ambient":
		*id = Ambient
	case "gameplay":
		*id = Gameplay
	default:
		return fmt.Errorf("unknown channel %q", text)
	}
	return nil
}

// Snapshot is a consistent copy of a channel's observable fields.
type Snapshot struct {
	Channel     Identity `json:"channel"`
	State       State    `json:"state"`
	Source      string   `json:"source,omitempty"`
	Generation  uint64   `json:"generation"`
	HasResource bool     `json:"has_resource"`
}
