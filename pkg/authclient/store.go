package authclient

import "sync"

// Status is the lifecycle position of a single tracked operation
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// OperationState tracks one async operation independently of the others
type OperationState struct {
	Status Status
	Err    error
}

// User is the authenticated identity as reported by the backend
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	Role          string `json:"role"`
	LoyaltyPoints int    `json:"loyaltyPoints"`
	PhotoURL      string `json:"photoURL,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	PhoneVerified bool   `json:"phoneVerified"`
}

// State is the single authoritative auth snapshot. Operation slots fail and
// recover independently; Authenticated and User only move together.
type State struct {
	Authenticated bool
	User          *User

	Login             OperationState
	Registration      OperationState
	PhoneVerification OperationState
	Logout            OperationState

	// VerificationID survives a failed code confirmation so the user can
	// retry without requesting a new code.
	VerificationID string
}

// event is a tagged state transition. All mutations go through fold; nothing
// writes State fields directly.
type event interface {
	isEvent()
}

type loginRequested struct{}
type loginSucceeded struct{ user *User }
type loginFailed struct{ err error }

type registerRequested struct{}
type registerSucceeded struct{}
type registerFailed struct{ err error }

type codeSendRequested struct{}
type codeSendSucceeded struct{ verificationID string }
type codeSendFailed struct{ err error }

type verifyRequested struct{}
type verifySucceeded struct{ user *User }
type verifyFailed struct{ err error }

type statusChecked struct{ user *User }
type statusUnauthenticated struct{}
type statusCheckFailed struct{ err error }

type logoutRequested struct{}
type logoutSucceeded struct{}
type logoutFailed struct{ err error }

type errorsCleared struct{}

func (loginRequested) isEvent()        {}
func (loginSucceeded) isEvent()        {}
func (loginFailed) isEvent()           {}
func (registerRequested) isEvent()     {}
func (registerSucceeded) isEvent()     {}
func (registerFailed) isEvent()        {}
func (codeSendRequested) isEvent()     {}
func (codeSendSucceeded) isEvent()     {}
func (codeSendFailed) isEvent()        {}
func (verifyRequested) isEvent()       {}
func (verifySucceeded) isEvent()       {}
func (verifyFailed) isEvent()          {}
func (statusChecked) isEvent()         {}
func (statusUnauthenticated) isEvent() {}
func (statusCheckFailed) isEvent()     {}
func (logoutRequested) isEvent()       {}
func (logoutSucceeded) isEvent()       {}
func (logoutFailed) isEvent()          {}
func (errorsCleared) isEvent()         {}

// fold applies one event to a state copy and returns the next state
func fold(s State, e event) State {
	switch ev := e.(type) {
	case loginRequested:
		s.Login = OperationState{Status: StatusPending}

	case loginSucceeded:
		s.Login = OperationState{Status: StatusSucceeded}
		s.Authenticated = true
		s.User = ev.user

	case loginFailed:
		s.Login = OperationState{Status: StatusFailed, Err: ev.err}
		s.Authenticated = false
		s.User = nil

	case registerRequested:
		s.Registration = OperationState{Status: StatusPending}

	case registerSucceeded:
		// Registration alone never authenticates; the phone sub-flow and
		// explicit login follow.
		s.Registration = OperationState{Status: StatusSucceeded}

	case registerFailed:
		s.Registration = OperationState{Status: StatusFailed, Err: ev.err}

	case codeSendRequested:
		s.PhoneVerification = OperationState{Status: StatusPending}
		s.VerificationID = ""

	case codeSendSucceeded:
		s.PhoneVerification = OperationState{Status: StatusSucceeded}
		s.VerificationID = ev.verificationID

	case codeSendFailed:
		s.PhoneVerification = OperationState{Status: StatusFailed, Err: ev.err}
		s.VerificationID = ""

	case verifyRequested:
		s.PhoneVerification = OperationState{Status: StatusPending}

	case verifySucceeded:
		s.PhoneVerification = OperationState{Status: StatusSucceeded}
		s.VerificationID = ""
		s.Authenticated = true
		s.User = ev.user

	case verifyFailed:
		// VerificationID is kept so the same code prompt can be retried
		s.PhoneVerification = OperationState{Status: StatusFailed, Err: ev.err}

	case statusChecked:
		s.Authenticated = true
		s.User = ev.user

	case statusUnauthenticated:
		// The silent outcome of a status probe: no error slot is touched
		s.Authenticated = false
		s.User = nil

	case statusCheckFailed:
		s.Login = OperationState{Status: StatusFailed, Err: ev.err}
		s.Authenticated = false
		s.User = nil

	case logoutRequested:
		s.Logout = OperationState{Status: StatusPending}

	case logoutSucceeded:
		s = State{Logout: OperationState{Status: StatusSucceeded}}

	case logoutFailed:
		// The local state still resets; only the Logout slot keeps the error
		s = State{Logout: OperationState{Status: StatusFailed, Err: ev.err}}

	case errorsCleared:
		for _, op := range []*OperationState{&s.Login, &s.Registration, &s.PhoneVerification, &s.Logout} {
			if op.Status == StatusFailed {
				*op = OperationState{Status: StatusIdle}
			} else {
				op.Err = nil
			}
		}
	}

	return s
}

// Store holds the auth state and notifies subscribers on every fold
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers map[int]func(State)
	nextSubID   int
}

// NewStore creates a store in the logged-out idle state
func NewStore() *Store {
	return &Store{
		subscribers: make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current state. The User pointer is cloned so
// callers cannot mutate shared data.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// Subscribe registers a listener called after every state change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// dispatch folds an event and notifies subscribers with the new snapshot
func (s *Store) dispatch(e event) {
	s.mu.Lock()
	s.state = fold(s.state, e)
	next := cloneState(s.state)
	listeners := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

func cloneState(s State) State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
