// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"codeberg.org/presetfe/presetfe/server/request_context"
	"codeberg.org/presetfe/presetfe/server/routes"
)

const (
	// How long an idle client's bucket is kept before cleanup.
	ExpiryDuration = time.Hour
	// Minimum interval between cleanup sweeps.
	CleanupInterval = 5 * time.Minute
)

// Limiter holds one token bucket per client IP.
type Limiter struct {
	rate    rate.Limit
	burst   int
	passIPs []string

	clients sync.Map // string -> *bucket

	mu            sync.Mutex
	lastCleanupAt time.Time

	now func() time.Time
}

type bucket struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	lastAccess time.Time
}

// New returns a Limiter refilling ratePerSecond tokens up to burst.
func New(ratePerSecond float64, burst int, passIPs []string) *Limiter {
	return &Limiter{
		rate:    rate.Limit(ratePerSecond),
		burst:   burst,
		passIPs: passIPs,
		now:     time.Now,
	}
}

// Middleware rejects requests with 429 once a client's bucket is empty.
func (l *Limiter) Middleware(w http.ResponseWriter, r *http.Request, next http.Handler) {
	l.maybeCleanup()

	ip := clientIP(r)
	if ip == "" || ipMatchesList(net.ParseIP(ip), l.passIPs) {
		next.ServeHTTP(w, r)

		return
	}

	ok, retryAfter := l.allow(ip)
	if !ok {
		log.Warn().
			Str("request_id", request_context.FromRequest(r).RequestID).
			Str("ip", ip).
			Str("path", r.URL.Path).
			Msg("Rate limit exceeded")

		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second)/time.Second)+1))

		request_context.FromRequest(r).StatusCode = http.StatusTooManyRequests
		routes.ErrorPage(w, r, "rate limit exceeded")

		return
	}

	next.ServeHTTP(w, r)
}

// allow consumes one token for ip, reporting the wait until the next one otherwise.
func (l *Limiter) allow(ip string) (bool, time.Duration) {
	now := l.now()

	value, _ := l.clients.LoadOrStore(ip, &bucket{limiter: rate.NewLimiter(l.rate, l.burst)})
	b, _ := value.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)

		return false, delay
	}

	return true, 0
}

// maybeCleanup drops idle buckets at most once per CleanupInterval.
func (l *Limiter) maybeCleanup() {
	now := l.now()

	l.mu.Lock()

	if l.lastCleanupAt.IsZero() {
		l.lastCleanupAt = now
	}

	if now.Sub(l.lastCleanupAt) < CleanupInterval {
		l.mu.Unlock()

		return
	}

	l.lastCleanupAt = now
	l.mu.Unlock()

	go func() {
		removed := l.cleanup(now)
		if removed > 0 {
			log.Info().Int("count", removed).Msg("Cleaned up expired limiters")
		}
	}()
}

func (l *Limiter) cleanup(now time.Time) int {
	removed := 0

	l.clients.Range(func(key, value any) bool {
		b, ok := value.(*bucket)
		if !ok {
			l.clients.Delete(key)

			return true
		}

		b.mu.Lock()
		idle := now.Sub(b.lastAccess)
		b.mu.Unlock()

		if idle > ExpiryDuration {
			l.clients.Delete(key)

			removed++
		}

		return true
	})

	return removed
}
