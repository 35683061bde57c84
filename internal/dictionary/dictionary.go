// Package dictionary decides whether a word is legal to play.
//
// The default Validator asks a remote dictionary service and memoizes the
// answers, along with the first definition the service returned, for the
// life of the process. Anything other than a clear answer from the service
// (network failure, timeout, 5xx) is treated as "not a word" so an
// unreachable dictionary never lets a bogus word through.
package dictionary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultURL is the public Free Dictionary API.
const DefaultURL = "https://api.dictionaryapi.dev/api/v2/entries/en/"

// Validator reports whether a word is in the dictionary.
type Validator interface {
	IsValid(ctx context.Context, word string) bool
}

// Definer is implemented by validators that can also explain a word.
type Definer interface {
	Define(ctx context.Context, word string) (Definition, bool)
}

// Definition is the first meaning the dictionary lists for a word.
type Definition struct {
	Word         string `json:"word"`
	Phonetic     string `json:"phonetic,omitempty"`
	PartOfSpeech string `json:"partOfSpeech,omitempty"`
	Meaning      string `json:"definition,omitempty"`
}

// entry mirrors the parts of the service's response that are kept.
type entry struct {
	Word      string `json:"word"`
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text string `json:"text"`
	} `json:"phonetics"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
		} `json:"definitions"`
	} `json:"meanings"`
}

func (e entry) definition() *Definition {
	def := &Definition{Word: e.Word, Phonetic: e.Phonetic}
	if def.Phonetic == "" {
		for _, p := range e.Phonetics {
			if p.Text != "" {
				def.Phonetic = p.Text
				break
			}
		}
	}
	if len(e.Meanings) > 0 {
		def.PartOfSpeech = e.Meanings[0].PartOfSpeech
		if len(e.Meanings[0].Definitions) > 0 {
			def.Meaning = e.Meanings[0].Definitions[0].Definition
		}
	}
	return def
}

type answer struct {
	valid      bool
	definition *Definition
}

// Client is a Validator backed by an HTTP lookup of baseURL + word.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  zerolog.Logger

	mu    sync.RWMutex
	cache map[string]answer

	group singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout bounds each lookup. Zero leaves the transport default. The
// client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for lookup failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient returns a Client querying baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		logger:  zerolog.Nop(),
		cache:   make(map[string]answer),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.timeout > 0 {
		h := *c.http
		h.Timeout = c.timeout
		c.http = &h
	}

	return c
}

// IsValid looks word up, serving from cache when possible. Concurrent
// lookups of the same word share one request.
func (c *Client) IsValid(ctx context.Context, word string) bool {
	return c.fetch(ctx, word).valid
}

// Define returns the dictionary's first definition of word. ok is false for
// words the dictionary does not know, or when it could not be reached.
func (c *Client) Define(ctx context.Context, word string) (def Definition, ok bool) {
	a := c.fetch(ctx, word)
	if !a.valid || a.definition == nil {
		return Definition{}, false
	}
	return *a.definition, true
}

func (c *Client) fetch(ctx context.Context, word string) answer {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return answer{}
	}

	c.mu.RLock()
	a, ok := c.cache[word]
	c.mu.RUnlock()
	if ok {
		return a
	}

	v, _, _ := c.group.Do(word, func() (any, error) {
		a, definitive := c.lookup(ctx, word)
		if definitive {
			c.mu.Lock()
			c.cache[word] = a
			c.mu.Unlock()
		}
		return a, nil
	})

	return v.(answer)
}

// lookup performs one request. definitive is false when the answer came from
// a failure rather than the dictionary itself, and must not be cached.
func (c *Client) lookup(ctx context.Context, word string) (a answer, definitive bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(word), nil)
	if err != nil {
		c.logger.Warn().Err(err).Str("word", word).Msg("LOOKUP: Bad request")
		return answer{}, false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("word", word).Msg("LOOKUP: Dictionary unreachable")
		return answer{}, false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		a.valid = true

		var entries []entry
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			c.logger.Debug().Err(err).Str("word", word).Msg("LOOKUP: Unreadable definition")
		} else if len(entries) > 0 {
			a.definition = entries[0].definition()
		}

		return a, true
	case resp.StatusCode == http.StatusNotFound:
		return answer{}, true
	default:
		c.logger.Warn().Int("status", resp.StatusCode).Str("word", word).Msg("LOOKUP: Unexpected status")
		return answer{}, false
	}
}

// Cached reports how many words have a memoized answer.
func (c *Client) Cached() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
