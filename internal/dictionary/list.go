package dictionary

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
)

// List is an offline Validator over a fixed set of words.
type List struct {
	words map[string]struct{}
}

// NewList builds a List from words; case is ignored.
func NewList(words ...string) *List {
	l := &List{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = normalize(w); w != "" {
			l.words[w] = struct{}{}
		}
	}
	return l
}

// ReadList parses one word per line. Blank lines and lines starting with
// '#' are skipped.
func ReadList(r io.Reader) (*List, error) {
	l := NewList()

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if w := normalize(line); w != "" {
			l.words[w] = struct{}{}
		}
	}

	return l, sc.Err()
}

// LoadList reads a word list from path.
func LoadList(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadList(f)
}

func (l *List) IsValid(_ context.Context, word string) bool {
	_, ok := l.words[normalize(word)]
	return ok
}

// Len is the number of words loaded.
func (l *List) Len() int {
	return len(l.words)
}

func normalize(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}
