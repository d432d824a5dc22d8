package storage

import "errors"

// ErrSessionNotFound is returned when no payment session exists for an id.
var ErrSessionNotFound = errors.New("payment session not found")

// ErrSessionExists is returned when a session with the same id was already recorded.
var ErrSessionExists = errors.New("payment session already exists")

// ErrSessionAlreadyCompleted is returned when a completion write loses the
// compare-and-set because the session was completed by another caller.
var ErrSessionAlreadyCompleted = errors.New("payment session already completed")

// ErrSessionNotPending is returned when a transition is attempted on a session
// that is already in a terminal state other than completed.
var ErrSessionNotPending = errors.New("payment session is not pending")

// ErrBalanceNotFound is returned when a user has never been granted credits.
var ErrBalanceNotFound = errors.New("balance not found")
