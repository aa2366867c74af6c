package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Messages sent with a 429.
const (
	TooManyRequestsMessage = "Too many requests, please try again later."
	TooManyAttemptsMessage = "Too many attempts, please try again later."
)

// maxTrackedClients bounds the per-IP map. When it is exceeded the map is
// reset, which briefly forgives everyone but keeps memory flat.
const maxTrackedClients = 10000

// RateLimiter hands out a token bucket per client IP. A bucket holds max
// tokens and refills one token every window/max, so a client gets at most
// max requests in a burst and max per window sustained. A fresh client can
// therefore make up to about twice max requests in its first window.
//
// A RateLimiter built with max <= 0 is disabled and lets everything through.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		burst:    max,
	}
	if max > 0 && window > 0 {
		rl.every = rate.Every(window / time.Duration(max))
	}
	return rl
}

func (rl *RateLimiter) disabled() bool {
	return rl.burst <= 0 || rl.every == 0
}

// limiter returns the bucket for ip, creating it on first sight.
func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if lim, ok := rl.limiters[ip]; ok {
		return lim
	}
	if len(rl.limiters) >= maxTrackedClients {
		rl.limiters = make(map[string]*rate.Limiter)
	}
	lim := rate.NewLimiter(rl.every, rl.burst)
	rl.limiters[ip] = lim
	return lim
}

// Limit charges every request one token and answers 429 with message once
// the client's bucket is empty.
func (rl *RateLimiter) Limit(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl.disabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.limiter(clientIP(r)).Allow() {
				writeTooMany(w, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AttemptLimiter counts failed attempts per client IP in fixed windows:
// at most max attempts may fail within window, measured from the client's
// first attempt in that window.
//
// An attempt is counted before the handler runs, so concurrent requests
// cannot all slip past the check, and refunded afterwards if the response
// was a success. A client that keeps getting its password right is never
// throttled.
//
// An AttemptLimiter built with max <= 0 is disabled and lets everything
// through.
type AttemptLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptWindow
	max      int
	window   time.Duration
	now      func() time.Time
}

type attemptWindow struct {
	count int
	start time.Time
}

func NewAttemptLimiter(max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		attempts: make(map[string]*attemptWindow),
		max:      max,
		window:   window,
		now:      time.Now,
	}
}

func (l *AttemptLimiter) disabled() bool {
	return l.max <= 0 || l.window <= 0
}

// acquire counts one attempt for ip. It returns the start of the window the
// attempt was counted in, or false when the client has no attempts left.
func (l *AttemptLimiter) acquire(ip string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.attempts[ip]
	if !ok || now.Sub(w.start) >= l.window {
		if !ok && len(l.attempts) >= maxTrackedClients {
			l.attempts = make(map[string]*attemptWindow)
		}
		w = &attemptWindow{start: now}
		l.attempts[ip] = w
	}

	if w.count >= l.max {
		return time.Time{}, false
	}
	w.count++
	return w.start, true
}

// refund gives back an attempt counted in the window starting at start.
// Attempts from an earlier window are already forgotten.
func (l *AttemptLimiter) refund(ip string, start time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.attempts[ip]; ok && w.start.Equal(start) && w.count > 0 {
		w.count--
	}
}

// LimitFailures answers 429 with message once the client has used up its
// attempts. Only responses with status >= 400 keep their attempt.
func (l *AttemptLimiter) LimitFailures(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l.disabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			start, ok := l.acquire(ip)
			if !ok {
				writeTooMany(w, message)
				return
			}

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			if wrapped.statusCode < http.StatusBadRequest {
				l.refund(ip, start)
			}
		})
	}
}

// clientIP strips the port from RemoteAddr. Behind a proxy, chi's RealIP
// middleware has already replaced RemoteAddr with the forwarded address.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func writeTooMany(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{"error": "rate_limited", "message": message})
}
