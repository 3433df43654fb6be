package runner

import (
	"sync"
	"time"
)

// breaker pauses a source after too many consecutive transport failures,
// a portal that is down should not be hammered once per user.
type breaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures map[string]int
	until    map[string]time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{
		threshold: threshold,
		cooldown:  cooldown,
		failures:  map[string]int{},
		until:     map[string]time.Time{},
	}
}

func (b *breaker) open(source string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.until[source]
	if !ok {
		return false
	}
	if now.Before(until) {
		return true
	}
	delete(b.until, source)
	b.failures[source] = 0
	return false
}

// record counts a finished pair, any outcome other than a transport
// failure resets the count.
func (b *breaker) record(source string, transportFailure bool, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !transportFailure {
		b.failures[source] = 0
		return
	}
	b.failures[source]++
	if b.failures[source] >= b.threshold {
		b.until[source] = now.Add(b.cooldown)
	}
}
