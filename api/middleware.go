package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// corsAllowedMethods is the method list announced to preflight requests.
const corsAllowedMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"

// corsMiddleware allows cross-origin requests from any origin. OPTIONS
// requests are answered as preflights and never reach the router.
func (a *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				w.Header().Set("Access-Control-Allow-Headers", requested)
			}
			w.Header().Add("Vary", "Access-Control-Request-Headers")
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// jsonBodyMiddleware parses application/json request bodies. The raw
// document is stored in the request context and the body is rewound so
// handlers can read it again. Bodies of other media types pass through.
func (a *API) jsonBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			next.ServeHTTP(w, r)
			return
		}

		if charset := strings.ToLower(params["charset"]); charset != "" && !strings.HasPrefix(charset, "utf-") {
			writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported charset %q", strings.ToUpper(charset)), nil, a.logger)
			return
		}

		if encoding := strings.ToLower(r.Header.Get("Content-Encoding")); encoding != "" && encoding != "identity" {
			writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported content encoding %q", encoding), nil, a.logger)
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.config.HTTP.JSONLimit))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err, a.logger)
				return
			}
			writeError(w, http.StatusBadRequest, "Failed to read request body", err, a.logger)
			return
		}

		if err := validateJSONBody(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body", err, a.logger)
			return
		}
		if len(raw) == 0 {
			raw = []byte("{}")
		}

		ctx := context.WithValue(r.Context(), ContextKeyBody, json.RawMessage(raw))
		r = r.WithContext(ctx)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		r.ContentLength = int64(len(raw))

		next.ServeHTTP(w, r)
	})
}

// validateJSONBody accepts an empty body, a JSON object or a JSON array.
// Bare scalars at the top level are rejected.
func validateJSONBody(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return errors.New("top-level JSON value must be an object or an array")
	}
	if !json.Valid(raw) {
		var v interface{}
		return json.Unmarshal(raw, &v)
	}
	return nil
}

func (a *API) rateLimitEnabled() bool {
	return a.config.RateLimit.RequestsPerSecond > 0
}

// rateLimitMiddleware provides rate limiting per IP
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	burst := a.config.RateLimit.Burst
	if burst <= 0 {
		burst = a.config.RateLimit.RequestsPerSecond
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		a.rateLimitersMu.Lock()
		entry, exists := a.rateLimiters[ip]
		if !exists {
			entry = &rateLimiterEntry{
				limiter: rate.NewLimiter(rate.Limit(a.config.RateLimit.RequestsPerSecond), burst),
			}
			a.rateLimiters[ip] = entry
		}
		entry.lastSeen = time.Now()
		limiter := entry.limiter
		a.rateLimitersMu.Unlock()

		if !limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "Too many requests", nil, a.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cleanupRateLimiters periodically removes limiters of clients that have
// been idle for an hour. It returns when the API is stopped.
func (a *API) cleanupRateLimiters() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.rateLimitersMu.Lock()
			for ip, entry := range a.rateLimiters {
				if time.Since(entry.lastSeen) > time.Hour {
					delete(a.rateLimiters, ip)
				}
			}
			a.rateLimitersMu.Unlock()
		case <-a.stopCh:
			return
		}
	}
}
