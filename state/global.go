package state

import (
	"sync"
)

var (
	globalState      *State
	globalStateMutex sync.RWMutex
)

// GlobalState retrieves the process wide state, or nil when nothing
// was registered yet.
func GlobalState() *State {
	globalStateMutex.RLock()
	s := globalState
	globalStateMutex.RUnlock()
	return s
}

// SetGlobalState installs s as the process wide state. The first
// registration wins: a later call leaves the existing state in place
// and returns it, so concurrent initializations converge on a single
// instance.
func SetGlobalState(s *State) (*State, bool) {
	globalStateMutex.Lock()
	defer globalStateMutex.Unlock()
	if globalState != nil {
		return globalState, false
	}
	globalState = s
	return s, true
}

// ResetGlobalState clears the process wide state. Meant for tests
// that need isolated instances.
func ResetGlobalState() {
	globalStateMutex.Lock()
	globalState = nil
	globalStateMutex.Unlock()
}
