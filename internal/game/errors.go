package game

import "errors"

// Rejections sent back to the player who asked. The text is shown to them
// as-is.
var (
	ErrWordTooShort = errors.New("word too short")
	ErrNotAWord     = errors.New("not a valid word")
	ErrCannotForm   = errors.New("cannot form word from available letters")
	ErrSuffixSteal  = errors.New("cannot just add common suffixes to the original word")
	ErrNoNewLetters = errors.New("a steal must add letters from the center")
	ErrNameTaken    = errors.New("name already taken")
)

// Notifier delivers session events to connections. Calls are made while
// the session lock is held, so implementations must not block or call back
// into the session.
type Notifier interface {
	// Broadcast sends the full state to every connection.
	Broadcast(st State)
	// Reject tells one connection why its request was refused.
	Reject(connID, reason string)
	// Kick tells one connection it was removed, then drops it.
	Kick(connID, message string)
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(State)        {}
func (nopNotifier) Reject(string, string) {}
func (nopNotifier) Kick(string, string)   {}
