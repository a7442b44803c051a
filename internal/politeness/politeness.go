package politeness

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Escalation tiers. The more we have asked of a host, the longer we wait
// between requests to it.
const (
	tierOneLimit = 10
	tierTwoLimit = 20

	tierOneFactor   = 1.0
	tierTwoFactor   = 1.4
	tierThreeFactor = 2.0
)

// Limiter spaces requests per domain with an escalating delay. All state
// is per-domain and guarded; callers from any goroutine share one Limiter.
type Limiter struct {
	mu         sync.Mutex
	domains    map[string]*domainState
	baseDelay  time.Duration
	jitterFrac float64
	rng        *rand.Rand
	logger     *zap.Logger
}

type domainState struct {
	mu       sync.Mutex
	requests int
	lastAt   time.Time
}

// NewLimiter builds a Limiter with the given base delay between requests
// to the same domain. jitterFrac adds up to that fraction of the delay as
// random extra sleep; zero disables jitter.
func NewLimiter(baseDelay time.Duration, jitterFrac float64, logger *zap.Logger) *Limiter {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if jitterFrac < 0 {
		jitterFrac = 0
	}
	return &Limiter{
		domains:    make(map[string]*domainState),
		baseDelay:  baseDelay,
		jitterFrac: jitterFrac,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     logger,
	}
}

// Delay returns the current inter-request delay for domain. It never
// decreases as more requests are recorded against the domain.
func (l *Limiter) Delay(domain string) time.Duration {
	st := l.state(domain)
	st.mu.Lock()
	defer st.mu.Unlock()
	return l.delayLocked(st)
}

func (l *Limiter) delayLocked(st *domainState) time.Duration {
	switch {
	case st.requests < tierOneLimit:
		return time.Duration(float64(l.baseDelay) * tierOneFactor)
	case st.requests < tierTwoLimit:
		return time.Duration(float64(l.baseDelay) * tierTwoFactor)
	default:
		return time.Duration(float64(l.baseDelay) * tierThreeFactor)
	}
}

// Wait blocks until enough time has passed since the previous request to
// domain, then records this request. Concurrent callers for the same
// domain are serialized so no two requests share a slot.
func (l *Limiter) Wait(ctx context.Context, domain string) error {
	st := l.state(domain)
	st.mu.Lock()
	defer st.mu.Unlock()

	delay := l.delayLocked(st)
	if l.jitterFrac > 0 {
		l.mu.Lock()
		jitter := time.Duration(l.rng.Float64() * l.jitterFrac * float64(delay))
		l.mu.Unlock()
		delay += jitter
	}

	if !st.lastAt.IsZero() {
		wakeAt := st.lastAt.Add(delay)
		if pause := time.Until(wakeAt); pause > 0 {
			timer := time.NewTimer(pause)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	st.requests++
	st.lastAt = time.Now()
	return nil
}

// Requests reports how many requests have been recorded for domain.
func (l *Limiter) Requests(domain string) int {
	st := l.state(domain)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.requests
}

func (l *Limiter) state(domain string) *domainState {
	key := strings.ToLower(domain)
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.domains[key]
	if !ok {
		st = &domainState{}
		l.domains[key] = st
	}
	return st
}
