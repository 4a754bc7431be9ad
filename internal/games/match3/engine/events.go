package engine

// State is the controller's state machine position.
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateCascading
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateCascading:
		return "cascading"
	default:
		return "unknown"
	}
}

// Listener receives round and tile lifecycle events. Events are delivered
// on the goroutine running the controller, never while the controller holds
// its lock, so a listener may call back into read-only controller methods.
// Leaving events unobserved does not affect the game.
type Listener interface {
	ScoreChanged(score int)
	GoalReached()
	TileSelected(t *Tile, at Pos)
	TileDeselected()
	SwapStarted(a, b Pos)
	MatchRemoved(tiles []*Tile)
	TileCreated(t *Tile, at Pos)
	StateChanged(s State)
}

// NopListener ignores every event. Embed it to implement part of Listener.
type NopListener struct{}

func (NopListener) ScoreChanged(int)        {}
func (NopListener) GoalReached()            {}
func (NopListener) TileSelected(*Tile, Pos) {}
func (NopListener) TileDeselected()         {}
func (NopListener) SwapStarted(Pos, Pos)    {}
func (NopListener) MatchRemoved([]*Tile)    {}
func (NopListener) TileCreated(*Tile, Pos)  {}
func (NopListener) StateChanged(State)      {}

// Stats summarizes a round.
type Stats struct {
	Moves        int // productive swaps
	Reverts      int // unproductive swaps rolled back
	Matches      int // runs removed
	Cascades     int // remove/fall/refill passes
	LongestChain int // most passes triggered by a single swap
	Stalls       int // settle groups abandoned by the watchdog
}
