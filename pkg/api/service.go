// Package api exposes commune matching and category normalization over HTTP
// and MCP.
package api

import (
	"errors"
	"sync"

	"github.com/hazyhaar/constats/pkg/gazetteer"
	"github.com/hazyhaar/constats/pkg/match"
)

var (
	// ErrInvalidRequest marks client errors (HTTP 400).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is returned for an unknown commune code (HTTP 404).
	ErrNotFound = errors.New("not found")
	// ErrNoGazetteer is returned before a gazetteer has been loaded (HTTP 503).
	ErrNoGazetteer = errors.New("no gazetteer loaded")
)

// MaxBatch is the largest number of names accepted by a batch match.
const MaxBatch = 100

// Service matches names against the gazetteer currently held by a Holder.
// The matcher is rebuilt lazily after the holder swaps its index.
type Service struct {
	holder *gazetteer.Holder
	opts   match.Options

	mu      sync.Mutex
	matcher *match.Matcher
}

// NewService returns a service over holder. opts configures every matcher it builds.
func NewService(holder *gazetteer.Holder, opts match.Options) *Service {
	return &Service{holder: holder, opts: opts}
}

// Matcher returns a matcher over the current index.
func (s *Service) Matcher() (*match.Matcher, error) {
	idx := s.holder.Index()
	if idx == nil {
		return nil, ErrNoGazetteer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matcher == nil || s.matcher.Index() != idx {
		s.matcher = match.New(idx, s.opts)
	}
	return s.matcher, nil
}

// Index returns the current gazetteer index.
func (s *Service) Index() (*gazetteer.Index, error) {
	idx := s.holder.Index()
	if idx == nil {
		return nil, ErrNoGazetteer
	}
	return idx, nil
}
