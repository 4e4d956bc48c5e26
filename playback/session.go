// Package playback dispatches script pages to the typing engine one at a
// time, in script order.
package playback

import "sync"

// Session holds the index of the next page to play. One session lives as
// long as the editor it plays into.
type Session struct {
	mu        sync.Mutex
	pageIndex int
}

// Index returns the index of the next page to dispatch
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageIndex
}

// Reset rewinds the session to the first page
func (s *Session) Reset() {
	s.mu.Lock()
	s.pageIndex = 0
	s.mu.Unlock()
}

// claim returns the current index and advances past it, unless it is
// already at or beyond count.
func (s *Session) claim(count int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pageIndex >= count {
		return s.pageIndex, false
	}
	i := s.pageIndex
	s.pageIndex++
	return i, true
}
