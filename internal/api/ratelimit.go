package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter throttles the decision endpoint: each client IP gets a fixed
// request allowance per window, tracked in memory.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
}

type clientWindow struct {
	used    int
	started time.Time
}

// NewRateLimiter allows limit requests per client per window. A janitor
// goroutine drops idle clients so the map stays bounded.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
	}
	go rl.janitor()
	return rl
}

// Allow records a request from ip and reports whether it fits the current
// window.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw, ok := rl.clients[ip]
	if !ok || now.Sub(cw.started) >= rl.window {
		rl.clients[ip] = &clientWindow{used: 1, started: now}
		return true
	}

	if cw.used < rl.limit {
		cw.used++
		return true
	}
	return false
}

// RetryAfter reports seconds until ip's window rolls over.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.clients[ip]
	if !ok {
		return 0
	}
	left := rl.window - time.Since(cw.started)
	if left <= 0 {
		return 0
	}
	return int(left.Seconds()) + 1
}

func (rl *RateLimiter) janitor() {
	for range time.Tick(time.Hour) {
		rl.mu.Lock()
		cutoff := time.Now().Add(-2 * rl.window)
		for ip, cw := range rl.clients {
			if cw.started.Before(cutoff) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// clientIP extracts the caller's address; a fronting proxy's
// X-Forwarded-For wins, first hop taken.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware rejects over-limit callers with 429 and a Retry-After
// hint.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
