package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"bestpay-client/internal/utils"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Barcode, refund and reverse move money.
	limitSettle = rate.Limit(2)
	burstSettle = 5

	// Status polling
	limitQuery = rate.Limit(10)
	burstQuery = 20

	visitorTTL      = 3 * time.Minute
	cleanupInterval = time.Minute
)

// Tier is a named rate policy.
type Tier struct {
	Name  string
	Limit rate.Limit
	Burst int
}

var (
	TierSettle = Tier{Name: "settle", Limit: limitSettle, Burst: burstSettle}
	TierQuery  = Tier{Name: "query", Limit: limitQuery, Burst: burstQuery}
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller and tier.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	resolve  func(*http.Request) Tier
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		resolve:  resolveRateTier,
		now:      time.Now,
	}
}

// getVisitor retrieves or creates a rate limiter for the given bucket key.
func (l *RateLimiter) getVisitor(key string, t Tier) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(t.Limit, t.Burst)
		l.visitors[key] = &visitor{limiter, l.now()}
		return limiter
	}

	v.lastSeen = l.now()
	return v.limiter
}

// Cleanup drops buckets idle for longer than the visitor TTL.
func (l *RateLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, key)
		}
	}
}

// Run cleans up idle buckets every minute until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Middleware checks if the request is allowed by the caller's bucket.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tier := l.resolve(r)
		key := identity(r) + ":" + tier.Name

		if !l.getVisitor(key, tier).Allow() {
			utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// identity prefers the authenticated client and falls back to the remote IP.
func identity(r *http.Request) string {
	if clientID, ok := utils.GetClientIDFromContext(r.Context()); ok {
		return "client:" + clientID
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

func resolveRateTier(r *http.Request) Tier {
	if strings.HasSuffix(r.URL.Path, "/query") {
		return TierQuery
	}
	return TierSettle
}
