/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package letters holds the tile alphabet, the draw pool and the
// letter-multiset arithmetic used to decide whether a word can be built.
package letters

import (
	"strings"
)

// Letter is one of the 26 upper case tile identities.
type Letter byte

const alphabetSize = 26

func (l Letter) String() string {
	return string(rune(l))
}

// Valid reports whether l is in A-Z.
func (l Letter) Valid() bool {
	return l >= 'A' && l <= 'Z'
}

func (l Letter) index() int {
	return int(l - 'A')
}

// Parse upper-cases word and splits it into letters. ok is false if
// word contains anything outside A-Z.
func Parse(word string) (out []Letter, ok bool) {
	word = strings.ToUpper(word)

	out = make([]Letter, 0, len(word))
	for i := 0; i < len(word); i++ {
		l := Letter(word[i])
		if !l.Valid() {
			return nil, false
		}
		out = append(out, l)
	}

	return out, true
}

// Strings converts a letter sequence to its JSON-friendly form.
func Strings(seq []Letter) []string {
	out := make([]string, len(seq))
	for i, l := range seq {
		out[i] = l.String()
	}
	return out
}
