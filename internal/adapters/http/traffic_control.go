package httpadapter

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

func (rt *Router) rateLimitMiddleware() func(http.Handler) http.Handler {
	if rt.cfg.APIRateLimitRPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	burst := rt.cfg.APIRateLimitBurst
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(rt.cfg.APIRateLimitRPS)))
	}
	limiter := rate.NewLimiter(rate.Limit(rt.cfg.APIRateLimitRPS), burst)
	retryAfter := strconv.Itoa(int(math.Max(1, math.Ceil(1/rt.cfg.APIRateLimitRPS))))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				rt.recordRejected("rate_limited")
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// backpressureMiddleware admits at most maxInFlight concurrent requests and
// waits up to wait for a slot before answering 503.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration, onReject func(string)) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case slots <- struct{}{}:
		default:
			timer := time.NewTimer(wait)
			select {
			case slots <- struct{}{}:
				timer.Stop()
			case <-timer.C:
				if onReject != nil {
					onReject("overloaded")
				}
				w.Header().Set("Retry-After", "1")
				writeError(w, r, http.StatusServiceUnavailable, "server overloaded, retry later")
				return
			case <-r.Context().Done():
				timer.Stop()
				return
			}
		}
		defer func() { <-slots }()

		next.ServeHTTP(w, r)
	})
}
