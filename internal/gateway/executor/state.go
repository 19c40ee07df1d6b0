package executor

import "fmt"

// State is the lifecycle position of one item.
type State int

// Item states.
const (
	Pending State = iota
	Authorized
	Resolved
	Executed
	Succeeded
	Failed
)

var stateNames = [...]string{"pending", "authorized", "resolved", "executed", "succeeded", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

var transitions = map[State][]State{
	Pending:    {Authorized, Failed},
	Authorized: {Resolved, Failed},
	Resolved:   {Executed, Failed},
	Executed:   {Succeeded, Failed},
}

// machine tracks one item through the lifecycle.
type machine struct {
	state State
}

func (m *machine) advance(to State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal transition from %s to %s", m.state, to)
}

// fail moves the item to Failed from any non-terminal state.
func (m *machine) fail() {
	if !m.state.Terminal() {
		m.state = Failed
	}
}
