// Package ratelimit throttles API traffic with token buckets: one bucket per
// client IP for every request and one per acting employee for mutations.
package ratelimit

import (
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Config struct {
	// RequestsPerWindow is the sustained request budget per client IP. It is
	// also the burst size. Zero disables the IP check.
	RequestsPerWindow int
	// MutationsPerWindow is the same budget for POST/PUT/PATCH/DELETE per
	// employee.
	MutationsPerWindow int
	Window             time.Duration
	// TrustProxy reads the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	Clock Clock
}

func DefaultConfig() *Config {
	return &Config{RequestsPerWindow: 300, MutationsPerWindow: 60, Window: time.Minute}
}

type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// bucketSet holds the buckets for one kind of key.
type bucketSet struct {
	reason  string
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
}

func newBucketSet(reason string, perWindow int, window time.Duration) *bucketSet {
	set := &bucketSet{reason: reason, burst: perWindow, buckets: map[string]*bucket{}}
	if perWindow > 0 {
		set.limit = rate.Limit(float64(perWindow) / window.Seconds())
	}
	return set
}

type Limiter struct {
	window    time.Duration
	trust     bool
	clock     Clock
	mu        sync.Mutex
	ips       *bucketSet
	employees *bucketSet

	stop     chan struct{}
	stopOnce sync.Once
	sweeper  sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}
	l := &Limiter{
		window:    window,
		trust:     cfg.TrustProxy,
		clock:     clock,
		ips:       newBucketSet("ip_limit", cfg.RequestsPerWindow, window),
		employees: newBucketSet("mutation_limit", cfg.MutationsPerWindow, window),
		stop:      make(chan struct{}),
	}

	l.sweeper.Add(1)
	go l.sweepLoop()
	return l
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.sweeper.Wait()
}

func (l *Limiter) AllowRequest(ip string) LimitResult {
	return l.take(l.ips, ip)
}

// AllowMutation spends from the employee's mutation bucket. Keys are trimmed
// and case-folded.
func (l *Limiter) AllowMutation(employeeKey string) LimitResult {
	return l.take(l.employees, strings.ToLower(strings.TrimSpace(employeeKey)))
}

func (l *Limiter) take(set *bucketSet, key string) LimitResult {
	if set.burst <= 0 {
		return LimitResult{Allowed: true}
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := set.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(set.limit, set.burst)}
		set.buckets[key] = b
	}
	b.lastSeen = now

	res := b.lim.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return LimitResult{RetryAfter: delay, Reason: set.reason}
	}
	return LimitResult{Allowed: true}
}

// Middleware answers 429 with Retry-After once a client IP, or for
// mutations the employee returned by employeeKey, runs out of tokens.
func (l *Limiter) Middleware(employeeKey func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r, l.trust)
			result := l.AllowRequest(ip)
			if result.Allowed && isMutation(r.Method) && employeeKey != nil {
				if key := employeeKey(r); key != "" {
					result = l.AllowMutation(key)
				}
			}
			if result.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			log.Ctx(r.Context()).Warn().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("ip", ip).
				Str("reason", result.Reason).
				Dur("retry_after", result.RetryAfter).
				Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", retryAfterSeconds(result.RetryAfter))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
		})
	}
}

func isMutation(method string) bool {
	return method == http.MethodPost || method == http.MethodPut ||
		method == http.MethodPatch || method == http.MethodDelete
}

// retryAfterSeconds rounds up to whole seconds, never below one.
func retryAfterSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return strconv.FormatInt(max(secs, 1), 10)
}

func (l *Limiter) sweepLoop() {
	defer l.sweeper.Done()
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops buckets idle for a full window. Such a bucket has refilled, so
// forgetting it changes nothing for the client.
func (l *Limiter) sweep() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, set := range []*bucketSet{l.ips, l.employees} {
		for key, b := range set.buckets {
			if now.Sub(b.lastSeen) >= l.window {
				delete(set.buckets, key)
			}
		}
	}
}

// GetClientIP returns the address rate limits are keyed on. Forwarding
// headers are read only when trustProxy is set; then the rightmost public
// X-Forwarded-For hop wins, falling back to the last hop and then X-Real-IP.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if addr, err := netip.ParseAddr(hop); err == nil && isPublic(addr) {
					return hop
				}
			}
			return strings.TrimSpace(hops[len(hops)-1])
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addrPort.Addr().String()
	}
	return r.RemoteAddr
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsPrivate() && !addr.IsLoopback() && !addr.IsLinkLocalUnicast()
}
