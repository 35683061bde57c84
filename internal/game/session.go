// Package game is the authoritative state of one bananagrams table.
//
// A Session owns the letter pool, the face-up center letters, the players
// and the turn. Every operation either applies completely and broadcasts
// the new state, is rejected back to the caller with nothing changed, or is
// silently ignored because it refers to something that no longer exists.
//
// Dictionary lookups happen outside the lock. Claim and Steal re-check the
// live state once the lookup returns, since other players may have drawn,
// claimed or left in the meantime.
package game

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Seednode/bananagrams/internal/dictionary"
	"github.com/Seednode/bananagrams/internal/letters"
	"github.com/Seednode/bananagrams/internal/turn"
)

// MinWordLength is the shortest word that may be claimed.
const MinWordLength = 3

// KickMessage is sent to a kicked connection.
const KickMessage = "You have been kicked from the game"

// suffixes that do not count as stealing a word when tacked on to it.
var suffixes = []string{"s", "es", "ing", "ed", "er", "est", "ly", "ness", "ment", "tion"}

type Session struct {
	mu sync.Mutex

	validator dictionary.Validator
	notifier  Notifier
	logger    zerolog.Logger
	now       func() time.Time

	pool     *letters.Pool
	center   []letters.Letter
	players  []*player
	turn     turn.Sequencer
	gameOver bool
	winner   string
}

type Option func(*Session)

func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithRand fixes the pool's random source, for reproducible games.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) {
		s.pool = letters.NewPool(r)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession returns an empty table with a full pool.
func NewSession(v dictionary.Validator, opts ...Option) *Session {
	s := &Session{
		validator: v,
		notifier:  nopNotifier{},
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = letters.NewPool(nil)
	}

	return s
}

// State returns a snapshot of the table.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Join seats a player. A disconnected player with the same name is revived
// under the new connection id and keeps their words. If nobody holds the
// turn, the joiner gets it.
func (s *Session) Join(connID, name string) error {
	name = strings.TrimSpace(name)
	if connID == "" || name == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch existing := s.playerByNameLocked(name); {
	case s.playerByIDLocked(connID) != nil:
		// Already seated; resend state so the client can catch up.
	case existing == nil:
		s.players = append(s.players, &player{id: connID, name: name})
		s.logger.Debug().Str("player", name).Msg("GAMES: Player joined")
	case existing.connected():
		s.broadcastLocked()
		return s.reject(connID, ErrNameTaken)
	default:
		s.turn.Rename(existing.id, connID)
		existing.id = connID
		existing.disconnectedAt = nil
		s.logger.Debug().Str("player", name).Msg("GAMES: Player reconnected")
	}

	s.turn.Join(connID)
	s.broadcastLocked()

	return nil
}

// Draw flips one letter from the pool into the center and passes the
// turn. Requests from anyone but the turn holder are ignored. Drawing from
// an empty pool ends the game.
func (s *Session) Draw(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.turn.Holds(connID) {
		return
	}

	l, ok := s.pool.Draw()
	if !ok {
		s.finishLocked()
	} else {
		s.center = append(s.center, l)
		s.turn.Advance(s.connectedIDsLocked())
	}

	s.broadcastLocked()
}

// Claim builds word from the center letters for the player on connID.
func (s *Session) Claim(ctx context.Context, connID, word string) error {
	word = strings.ToUpper(strings.TrimSpace(word))

	s.mu.Lock()
	over := s.gameOver
	seated := s.playerByIDLocked(connID) != nil
	s.mu.Unlock()

	if utf8.RuneCountInString(word) < MinWordLength || over {
		return s.reject(connID, ErrWordTooShort)
	}
	if !seated {
		return nil
	}

	seq, ok := letters.Parse(word)
	if !ok || !s.validator.IsValid(ctx, word) {
		return s.reject(connID, ErrNotAWord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.playerByIDLocked(connID)
	switch {
	case p == nil:
		return nil
	case s.gameOver:
		return s.reject(connID, ErrWordTooShort)
	}

	if _, ok := letters.CanForm(seq, letters.Count(s.center)); !ok {
		return s.reject(connID, ErrCannotForm)
	}

	s.center, _ = letters.Remove(s.center, seq)
	p.words = append(p.words, word)

	s.logger.Debug().Str("player", p.name).Str("word", word).Msg("GAMES: Word claimed")
	s.broadcastLocked()

	return nil
}

// Steal turns targetWord, owned by targetID, into newWord for the player on
// connID, using center letters as needed. Letters of targetWord that
// newWord does not use go back to the center.
func (s *Session) Steal(ctx context.Context, connID, targetID, targetWord, newWord string) error {
	targetWord = strings.ToUpper(strings.TrimSpace(targetWord))
	newWord = strings.ToUpper(strings.TrimSpace(newWord))

	s.mu.Lock()
	_, _, ok := s.stealPartiesLocked(connID, targetID, targetWord)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	newSeq, ok := letters.Parse(newWord)
	if !ok || !s.validator.IsValid(ctx, newWord) {
		return s.reject(connID, ErrNotAWord)
	}
	if isSuffixSteal(targetWord, newWord) {
		return s.reject(connID, ErrSuffixSteal)
	}
	// Handing back the same letters, as-is or rearranged, is not a steal.
	if utf8.RuneCountInString(newWord) <= utf8.RuneCountInString(targetWord) {
		return s.reject(connID, ErrNoNewLetters)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	thief, victim, ok := s.stealPartiesLocked(connID, targetID, targetWord)
	if !ok {
		return nil
	}

	targetSeq, _ := letters.Parse(targetWord)
	available := letters.Count(s.center).Union(letters.Count(targetSeq))
	if _, ok := letters.CanForm(newSeq, available); !ok {
		return s.reject(connID, ErrCannotForm)
	}

	// The center pays first; whatever it cannot cover comes out of the
	// stolen word, and the rest of the stolen word returns to the center.
	remaining, fromTarget := letters.Remove(s.center, newSeq)
	returned, _ := letters.Remove(targetSeq, fromTarget)
	s.center = append(remaining, returned...)

	victim.removeWord(targetWord)
	thief.words = append(thief.words, newWord)

	s.logger.Debug().
		Str("player", thief.name).
		Str("from", victim.name).
		Str("target", targetWord).
		Str("word", newWord).
		Msg("GAMES: Word stolen")
	s.broadcastLocked()

	return nil
}

// Disconnect handles a dropped connection. Players without words are
// forgotten; players with words stay on the scoreboard, marked as gone.
func (s *Session) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexByIDLocked(connID); i >= 0 {
		p := s.players[i]
		if len(p.words) == 0 {
			s.players = append(s.players[:i:i], s.players[i+1:]...)
		} else {
			now := s.now()
			p.disconnectedAt = &now
		}
		s.turn.Leave(connID, s.connectedIDsLocked())
		s.logger.Debug().Str("player", p.name).Int("words", len(p.words)).Msg("GAMES: Player disconnected")
	}

	s.broadcastLocked()
}

// Kick removes a player outright, words and all, and drops their
// connection.
func (s *Session) Kick(targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByIDLocked(targetID)
	if i < 0 {
		return
	}

	p := s.players[i]
	s.players = append(s.players[:i:i], s.players[i+1:]...)
	s.turn.Leave(targetID, s.connectedIDsLocked())

	s.logger.Debug().Str("player", p.name).Msg("GAMES: Player kicked")
	s.notifier.Kick(targetID, KickMessage)
	s.broadcastLocked()
}

// Restart clears the table and refills the pool.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players = nil
	s.center = nil
	s.turn.Reset()
	s.pool.Reset()
	s.gameOver = false
	s.winner = ""

	s.logger.Debug().Msg("GAMES: Game restarted")
	s.broadcastLocked()
}

// finishLocked ends the game. The winner has the most letters across their
// words; the earliest-seated player wins ties.
func (s *Session) finishLocked() {
	s.gameOver = true
	s.winner = ""

	best := -1
	for _, p := range s.players {
		if sc := p.score(); sc > best {
			best = sc
			s.winner = p.name
		}
	}

	s.logger.Debug().Str("winner", s.winner).Int("score", best).Msg("GAMES: Game over")
}

func (s *Session) stealPartiesLocked(connID, targetID, targetWord string) (thief, victim *player, ok bool) {
	if s.gameOver {
		return nil, nil, false
	}

	thief = s.playerByIDLocked(connID)
	victim = s.playerByIDLocked(targetID)
	if thief == nil || victim == nil || !victim.hasWord(targetWord) {
		return nil, nil, false
	}

	return thief, victim, true
}

func (s *Session) reject(connID string, err error) error {
	s.notifier.Reject(connID, err.Error())
	return err
}

func (s *Session) broadcastLocked() {
	s.notifier.Broadcast(s.snapshotLocked())
}

func (s *Session) indexByIDLocked(id string) int {
	for i, p := range s.players {
		if p.id == id {
			return i
		}
	}
	return -1
}

func (s *Session) playerByIDLocked(id string) *player {
	if i := s.indexByIDLocked(id); i >= 0 {
		return s.players[i]
	}
	return nil
}

func (s *Session) playerByNameLocked(name string) *player {
	for _, p := range s.players {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (s *Session) connectedIDsLocked() []string {
	ids := make([]string, 0, len(s.players))
	for _, p := range s.players {
		if p.connected() {
			ids = append(ids, p.id)
		}
	}
	return ids
}

// isSuffixSteal reports whether newWord is just word with a common suffix
// added, or with its last letter swapped for one.
func isSuffixSteal(word, newWord string) bool {
	word = strings.ToLower(word)
	newWord = strings.ToLower(newWord)
	stem := word
	if len(stem) > 0 {
		stem = stem[:len(stem)-1]
	}

	for _, suffix := range suffixes {
		if newWord == word+suffix || newWord == stem+suffix {
			return true
		}
	}
	return false
}
