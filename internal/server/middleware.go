package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"songshelf/internal/cache"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// responseWriter wraps http.ResponseWriter to capture status code & size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(data)
	rw.size += size
	return size, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// requestLoggingMiddleware logs HTTP requests (if enabled) with latency & size.
func (ms *MusicServer) requestLoggingMiddleware(next http.Handler) http.Handler {
	if !ms.config.Server.RequestLogging {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		if !shouldLogRequest(r.URL.Path) {
			return
		}
		ms.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"remote":   r.RemoteAddr,
			"status":   rw.statusCode,
			"size":     formatBytes(rw.size),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("Request")
	})
}

// corsMiddleware injects CORS headers if enabled and answers preflight requests.
func (ms *MusicServer) corsMiddleware(next http.Handler) http.Handler {
	if !ms.config.Server.EnableCORS {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// panicRecoveryMiddleware intercepts panics returning HTTP 500 without crashing the process.
func (ms *MusicServer) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				ms.logger.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  err,
				}).Error("Recovered from panic")
				ms.respondWithError(w, r, http.StatusInternalServerError, "Internal server error", fmt.Errorf("panic: %v", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireSession rejects requests while nobody is signed in.
func (ms *MusicServer) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ms.store.Auth().CurrentUser(); !ok {
			ms.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware throttles login and registration attempts per client IP.
func (ms *MusicServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ms.limiter.allow(ms.clientIP(r)) {
			ms.respondWithError(w, r, http.StatusTooManyRequests, "Too many attempts, please wait", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientLimiter keeps one token bucket per client. Idle buckets expire.
type clientLimiter struct {
	limit   rate.Limit
	burst   int
	clients *cache.TTLCache[*rate.Limiter]
}

func newClientLimiter(ctx context.Context, perSecond float64, burst int) *clientLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &clientLimiter{
		limit:   limit,
		burst:   burst,
		clients: cache.NewTTLCache[*rate.Limiter](ctx, 10*time.Minute, time.Minute),
	}
}

// tracked returns how many clients currently hold a bucket
func (l *clientLimiter) tracked() int {
	return l.clients.Size()
}

func (l *clientLimiter) allow(client string) bool {
	limiter := l.clients.GetOrSet(client, func() *rate.Limiter {
		return rate.NewLimiter(l.limit, l.burst)
	})
	return limiter.Allow()
}

// clientIP returns the peer address. X-Forwarded-For is only consulted when
// the peer is a trusted proxy; it is then walked from the right, skipping
// trusted hops, and the first other address wins.
func (ms *MusicServer) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !ms.trustedProxy(host) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !ms.trustedProxy(hop) {
			return hop
		}
	}
	return host
}

func (ms *MusicServer) trustedProxy(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range ms.proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// shouldLogRequest filters noisy paths from request logging output.
func shouldLogRequest(path string) bool {
	return path != "/health" && path != "/favicon.ico"
}

// formatBytes provides a simple approximate human-readable size.
func formatBytes(bytes int) string {
	if bytes == 0 {
		return "0B"
	}

	const unit = 1024
	if bytes < unit {
		return "< 1KB"
	}

	div, exp := int64(unit), 0
	for n := int64(bytes) / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB"}
	if exp >= len(units) {
		exp = len(units) - 1
	}

	return fmt.Sprintf("%d%s", int64(bytes)/div, units[exp])
}
