package state

import (
	tele "gopkg.in/telebot.v4"

	"github.com/dnxsqw/physiq-bot/internal/profile"
)

// State identifies a finite-state-machine step in the registration wizard.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"

	StateRegFirstName State = "reg:first_name"
	StateRegLastName  State = "reg:last_name"
	StateRegCity      State = "reg:city"
	StateRegSchool    State = "reg:school"
	StateRegGrade     State = "reg:grade"
)

// wizardOrder is the fixed linear sequence of registration steps.
var wizardOrder = []State{
	StateRegFirstName,
	StateRegLastName,
	StateRegCity,
	StateRegSchool,
	StateRegGrade,
}

// First returns the opening wizard step.
func First() State { return wizardOrder[0] }

// Next returns the step after st. ok is false when st is the last step
// or not a wizard step at all.
func Next(st State) (State, bool) {
	for i, s := range wizardOrder {
		if s == st && i+1 < len(wizardOrder) {
			return wizardOrder[i+1], true
		}
	}
	return StateIdle, false
}

// IsWizard reports whether st belongs to the registration sequence.
func IsWizard(st State) bool {
	for _, s := range wizardOrder {
		if s == st {
			return true
		}
	}
	return false
}

// Session stores the conversation state and the in-flight draft for a user.
type Session struct {
	State State
	Draft *profile.Draft
}

// Manager orchestrates user sessions and FSM state transitions.
type Manager interface {
	Get(userID int64) Session
	SetState(userID int64, st State)
	GetState(userID int64) State
	Clear(userID int64)

	// BeginDraft replaces any existing session with a fresh draft and
	// moves the user to the first wizard step.
	BeginDraft(userID int64) *profile.Draft
	// Draft returns the current draft, lazily discarding it when expired.
	Draft(userID int64) (*profile.Draft, bool)
	// UpdateDraft mutates the draft under the manager lock and refreshes
	// its deadline. It reports false when there is no live draft.
	UpdateDraft(userID int64, fn func(*profile.Draft)) bool

	// InProgress reports whether the user has an active wizard step with
	// a live draft behind it.
	InProgress(userID int64) bool

	// Lock serializes processing for a single user across goroutines.
	Lock(userID int64)
	Unlock(userID int64)

	// Sweep drops every expired draft and returns how many were removed.
	Sweep() int

	ManagerHandler(c tele.Context) error
}
