package game

import (
	"time"

	"github.com/Seednode/bananagrams/internal/letters"
)

// player is the server-side record of one participant.
type player struct {
	id             string
	name           string
	words          []string
	disconnectedAt *time.Time
}

func (p *player) connected() bool {
	return p.disconnectedAt == nil
}

func (p *player) score() int {
	total := 0
	for _, w := range p.words {
		total += len(w)
	}
	return total
}

// removeWord drops the first occurrence of word and reports whether it
// was there.
func (p *player) removeWord(word string) bool {
	for i, w := range p.words {
		if w == word {
			p.words = append(p.words[:i:i], p.words[i+1:]...)
			return true
		}
	}
	return false
}

func (p *player) hasWord(word string) bool {
	for _, w := range p.words {
		if w == word {
			return true
		}
	}
	return false
}

// PlayerState is a player as seen by clients.
type PlayerState struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Words          []string `json:"words"`
	DisconnectedAt *int64   `json:"disconnectedAt,omitempty"` // unix millis
}

// State is a full snapshot of a session, broadcast after every change.
type State struct {
	Players       []PlayerState  `json:"players"`
	CenterLetters []string       `json:"centerLetters"`
	CurrentPlayer *string        `json:"currentPlayer"`
	LetterPool    map[string]int `json:"letterPool"`
	GameOver      bool           `json:"gameOver"`
	Winner        *string        `json:"winner"`
	TotalLetters  int            `json:"totalLetters"`
}

func (s *Session) snapshotLocked() State {
	st := State{
		Players:       make([]PlayerState, 0, len(s.players)),
		CenterLetters: letters.Strings(s.center),
		LetterPool:    s.pool.Counts(),
		GameOver:      s.gameOver,
		TotalLetters:  letters.Total,
	}

	for _, p := range s.players {
		ps := PlayerState{
			ID:    p.id,
			Name:  p.name,
			Words: append([]string{}, p.words...),
		}
		if p.disconnectedAt != nil {
			ms := p.disconnectedAt.UnixMilli()
			ps.DisconnectedAt = &ms
		}
		st.Players = append(st.Players, ps)
	}

	if id, ok := s.turn.Current(); ok {
		st.CurrentPlayer = &id
	}
	if s.winner != "" {
		winner := s.winner
		st.Winner = &winner
	}

	return st
}
