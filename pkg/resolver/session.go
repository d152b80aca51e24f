package resolver

import (
	"sync"

	"github.com/bastiangx/omniserve/pkg/suggest"
)

// URLGuess is a predicted completion of the input, taken from a candidate URL.
type URLGuess struct {
	// Input is the text the location bar would show.
	Input string
	// URL is where the guess navigates.
	URL string
}

// Session is the per location-bar state. It is mutated on every keystroke
// and by every resolution that is not superseded.
type Session struct {
	mu sync.Mutex
	// applyMu is held from a resolution's apply step until its callback
	// returns, so the callback reads the state that resolution applied.
	applyMu sync.Mutex

	input      string
	lastInput  string
	generation uint64

	engines   *Pending[[]suggest.Engine]
	bookmarks *Pending[[]suggest.Item]

	results  []suggest.Item
	urlGuess *URLGuess
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// SetInput records what the user typed.
func (s *Session) SetInput(v string) {
	s.mu.Lock()
	s.input = v
	s.mu.Unlock()
}

// Input returns the current input.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetSearchEngines sets the pending engine list.
func (s *Session) SetSearchEngines(p *Pending[[]suggest.Engine]) {
	s.mu.Lock()
	s.engines = p
	s.mu.Unlock()
}

// SetBookmarksFetch sets the pre-started bookmarks fetch.
func (s *Session) SetBookmarksFetch(p *Pending[[]suggest.Item]) {
	s.mu.Lock()
	s.bookmarks = p
	s.mu.Unlock()
}

// Results returns the last applied suggestion list.
func (s *Session) Results() []suggest.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// URLGuess returns the current guess.
func (s *Session) URLGuess() (URLGuess, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.urlGuess == nil {
		return URLGuess{}, false
	}
	return *s.urlGuess, true
}

// LastInput is the input of the last applied resolution.
func (s *Session) LastInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInput
}

// Generation is the id of the newest resolution started on the session.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// snapshot is what a resolution captures when it starts.
type snapshot struct {
	generation uint64
	input      string
	engines    *Pending[[]suggest.Engine]
	bookmarks  *Pending[[]suggest.Item]
}

func (s *Session) begin() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return snapshot{
		generation: s.generation,
		input:      s.input,
		engines:    s.engines,
		bookmarks:  s.bookmarks,
	}
}
