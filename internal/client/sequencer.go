package client

import "sync"

// Sequencer tags requests with increasing numbers so that only the response
// to the most recently issued request is applied.
type Sequencer struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// Next returns the tag for a new request.
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Accept reports whether the response tagged seq should be applied. It is
// true only for the newest request issued so far, and only once.
func (s *Sequencer) Accept(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued || seq <= s.applied {
		return false
	}
	s.applied = seq
	return true
}
