package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rohmanhakim/recrawler/pkg/timeutil"
)

// EmissionLimiter
// Specialized component to pace how fast scheduled URLs are handed to a
// consumer (the drain loop around Request).
// Responsibilities:
// - Bookkeep each hostname's last emission timestamp
// - Enforce a per-host minimum delay between two emissions
// - Enforce a global emissions-per-second bound across all hosts
// It never reorders or drops URLs; ordering stays with the schedule.
type EmissionLimiter interface {
	SetHostDelay(delay time.Duration)
	SetGlobalRate(perSecond float64)
	MarkEmission(host string)
	ResolveDelay(host string) time.Duration
	WaitGlobal(ctx context.Context) error
}

type ConcurrentEmissionLimiter struct {
	mu        sync.RWMutex
	hostDelay time.Duration
	lastSeen  map[string]time.Time
	global    *rate.Limiter
}

func NewConcurrentEmissionLimiter() *ConcurrentEmissionLimiter {
	return &ConcurrentEmissionLimiter{
		lastSeen: make(map[string]time.Time),
		global:   rate.NewLimiter(rate.Inf, 1),
	}
}

// Set the minimum delay between two emissions for the same host
func (l *ConcurrentEmissionLimiter) SetHostDelay(delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hostDelay = delay
}

// SetGlobalRate bounds emissions per second across all hosts.
// perSecond <= 0 disables the global bound.
func (l *ConcurrentEmissionLimiter) SetGlobalRate(perSecond float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if perSecond <= 0 {
		l.global = rate.NewLimiter(rate.Inf, 1)
		return
	}
	burst := int(perSecond) + 1
	l.global = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// MarkEmission records that a URL for the given host was just handed out.
func (l *ConcurrentEmissionLimiter) MarkEmission(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastSeen[host] = time.Now()
}

// ResolveDelay returns the remaining time before the host may be emitted
// again. Hosts never seen before get no delay.
func (l *ConcurrentEmissionLimiter) ResolveDelay(host string) time.Duration {
	l.mu.RLock()
	last, exists := l.lastSeen[host]
	hostDelay := l.hostDelay
	l.mu.RUnlock()

	if !exists {
		return time.Duration(0)
	}

	elapsed := time.Since(last)
	if elapsed < hostDelay {
		return hostDelay - elapsed
	}
	return time.Duration(0)
}

// WaitGlobal blocks until the global rate limiter grants one emission.
func (l *ConcurrentEmissionLimiter) WaitGlobal(ctx context.Context) error {
	l.mu.RLock()
	global := l.global
	l.mu.RUnlock()

	return global.Wait(ctx)
}

// MaxPendingDelay returns the largest of the given host delays.
func MaxPendingDelay(delays []time.Duration) time.Duration {
	return timeutil.MaxDuration(delays)
}
