package letters

import (
	"math/rand/v2"
	"time"
)

// Distribution is the fixed starting count for every letter.
var Distribution = Multiset{
	13, 3, 3, 6, 18, 3, 4, 3, 12, 2, 2, 5, 3, // A-M
	8, 11, 3, 2, 9, 6, 9, 6, 3, 3, 2, 3, 2, // N-Z
}

// Total is the number of tiles in a full pool.
var Total = Distribution.Size()

// Pool is the face-down supply of letters. It is not safe for concurrent
// use; the owning game session serialises access.
type Pool struct {
	remaining  Multiset
	randomizer *rand.Rand
}

// NewPool returns a full pool. A nil randomizer gets a time-seeded one.
func NewPool(randomizer *rand.Rand) *Pool {
	if randomizer == nil {
		seed := uint64(time.Now().UnixNano())
		randomizer = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	return &Pool{
		remaining:  Distribution,
		randomizer: randomizer,
	}
}

// Draw removes one letter, chosen with probability proportional to the
// remaining count of each letter. ok is false once the pool is empty.
func (p *Pool) Draw() (l Letter, ok bool) {
	total := p.remaining.Size()
	if total == 0 {
		return 0, false
	}

	pick := p.randomizer.IntN(total)
	for i, n := range p.remaining {
		if pick < n {
			p.remaining[i]--
			return Letter('A' + i), true
		}
		pick -= n
	}

	return 0, false
}

// Reset restores the starting distribution.
func (p *Pool) Reset() {
	p.remaining = Distribution
}

// Remaining returns a copy of the per-letter counts.
func (p *Pool) Remaining() Multiset {
	return p.remaining
}

// Len is the number of letters left to draw.
func (p *Pool) Len() int {
	return p.remaining.Size()
}

// Counts renders the remaining counts keyed by letter, for snapshots.
func (p *Pool) Counts() map[string]int {
	out := make(map[string]int, alphabetSize)
	for i, n := range p.remaining {
		out[Letter('A'+i).String()] = n
	}
	return out
}
