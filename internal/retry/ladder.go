package retry

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/fetch"
)

// Evasion rungs, climbed per domain on each blocked response.
const (
	rungRotateDesktop = iota
	rungGoMobile
	rungGiveUp
)

// Ladder escalates anti-blocking measures per domain. Each blocked
// response climbs one rung: first a different desktop identity, then a
// mobile identity, then the domain is abandoned for the rest of the run.
type Ladder struct {
	mu       sync.Mutex
	rungs    map[string]int
	rotator  *fetch.Rotator
	cooldown time.Duration
	logger   *zap.Logger
}

// NewLadder builds a Ladder sharing the given identity rotator.
func NewLadder(rotator *fetch.Rotator, cooldown time.Duration, logger *zap.Logger) *Ladder {
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	return &Ladder{
		rungs:    make(map[string]int),
		rotator:  rotator,
		cooldown: cooldown,
		logger:   logger,
	}
}

// Escalation is the ladder's answer to a blocked response.
type Escalation struct {
	// GiveUp means the domain has exhausted all evasion rungs.
	GiveUp bool
	// Identity to use on the next attempt when not giving up.
	Identity fetch.Identity
	// Cooldown to sleep before the next attempt.
	Cooldown time.Duration
}

// Escalate records a blocked response for domain and returns what to do
// next. current is the identity that was blocked.
func (l *Ladder) Escalate(domain string, current fetch.Identity) Escalation {
	key := strings.ToLower(domain)
	l.mu.Lock()
	rung := l.rungs[key]
	l.rungs[key] = rung + 1
	l.mu.Unlock()

	switch rung {
	case rungRotateDesktop:
		next := l.rotator.PickOther(current)
		l.logger.Info("blocked; rotating identity",
			zap.String("domain", domain),
			zap.String("from", current.Name),
			zap.String("to", next.Name))
		return Escalation{Identity: next, Cooldown: l.cooldown}
	case rungGoMobile:
		next := l.rotator.PickMobile()
		l.logger.Info("blocked again; switching to mobile identity",
			zap.String("domain", domain),
			zap.String("to", next.Name))
		return Escalation{Identity: next, Cooldown: 2 * l.cooldown}
	default:
		l.logger.Warn("evasion exhausted; abandoning domain", zap.String("domain", domain))
		return Escalation{GiveUp: true}
	}
}

// Exhausted reports whether domain has climbed past the last rung.
func (l *Ladder) Exhausted(domain string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rungs[strings.ToLower(domain)] > rungGiveUp
}
