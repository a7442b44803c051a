package dedupe

import (
	"sync"
)

// Set tracks what one crawl run has already seen: article URLs before
// fetch, deal fingerprints before emit. State lives and dies with the
// run; cross-run dedup happens at the sink via upserts.
type Set struct {
	mu   sync.Mutex
	urls map[string]struct{}
	fps  map[string]struct{}
}

func NewSet() *Set {
	return &Set{
		urls: make(map[string]struct{}),
		fps:  make(map[string]struct{}),
	}
}

// MarkURL records url and reports whether it was new. An empty URL is
// never new.
func (s *Set) MarkURL(url string) bool {
	if url == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.urls[url]; seen {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// MarkDeal records a deal fingerprint and reports whether it was new.
func (s *Set) MarkDeal(fingerprint string) bool {
	if fingerprint == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.fps[fingerprint]; seen {
		return false
	}
	s.fps[fingerprint] = struct{}{}
	return true
}

// URLCount reports how many distinct URLs have been marked.
func (s *Set) URLCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

// DealCount reports how many distinct deal fingerprints have been marked.
func (s *Set) DealCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fps)
}
