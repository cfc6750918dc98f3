package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const (
	rateLimitExceededJSON = `{"error":"Rate limit exceeded","message":"Too many requests. Please try again later.","retry_after":%d}`
)

// RateLimitMiddleware limits each client IP to limit requests per window.
// A limit of zero or less disables limiting.
func RateLimitMiddleware(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	store := memory.NewStore()
	rate := limiter.Rate{
		Period: window,
		Limit:  int64(limit),
	}
	instance := limiter.New(store, rate)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getClientIP(r)

			context, err := instance.Get(r.Context(), key)
			if err != nil {
				// A broken limiter must not take the service down
				log.Error().Err(err).Msg("rate limiter error")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(context.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(context.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(context.Reset, 10))

			if context.Reached {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				retryAfter := int(time.Until(time.Unix(context.Reset, 0)).Seconds())
				if retryAfter < 0 {
					retryAfter = 0
				}
				_, _ = fmt.Fprintf(w, rateLimitExceededJSON, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP address from the request
// Handles X-Forwarded-For header for proxied requests
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
