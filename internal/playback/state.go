package playback

// State is the lifecycle of one playback session.
//
//	Idle -> Loading -> (Ready | Failed)
//	Ready <-> Stalled
//	any -> Released (terminal)
type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateStalled  State = "stalled"
	StateFailed   State = "failed"
	StateReleased State = "released"
)

// Live reports whether the session still owns resources.
func (s State) Live() bool {
	return s != StateReleased
}

// Observer receives state transitions on the controller's serial loop.
type Observer func(from, to State)
