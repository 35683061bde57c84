// Package turn tracks which connected player may draw the next letter.
package turn

// Sequencer holds the id of the current turn holder. The zero value has
// nobody holding the turn.
type Sequencer struct {
	current string
}

// Current returns the turn holder's id and whether anyone holds it.
func (s *Sequencer) Current() (string, bool) {
	return s.current, s.current != ""
}

// Holds reports whether id is the turn holder.
func (s *Sequencer) Holds(id string) bool {
	return id != "" && s.current == id
}

// Join gives id the turn if nobody holds it.
func (s *Sequencer) Join(id string) {
	if s.current == "" {
		s.current = id
	}
}

// Advance passes the turn to whoever follows the holder in connected,
// wrapping around. If the holder is not in connected the turn is cleared
// and the next Join re-seeds it.
func (s *Sequencer) Advance(connected []string) {
	for i, id := range connected {
		if id == s.current {
			s.current = connected[(i+1)%len(connected)]
			return
		}
	}
	s.current = ""
}

// Leave hands the turn to the first of connected when id held it.
// connected must already exclude id.
func (s *Sequencer) Leave(id string, connected []string) {
	if !s.Holds(id) {
		return
	}
	if len(connected) == 0 {
		s.current = ""
		return
	}
	s.current = connected[0]
}

// Rename moves the turn from one id to another, for reconnects.
func (s *Sequencer) Rename(from, to string) {
	if s.Holds(from) {
		s.current = to
	}
}

// Reset clears the turn.
func (s *Sequencer) Reset() {
	s.current = ""
}
