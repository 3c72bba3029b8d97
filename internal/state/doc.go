// Package state tracks per-user conversation state for the registration
// wizard: the current FSM step, the draft being filled in, and a per-user
// lock so updates from one user are applied one at a time.
package state
