package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultMaxBodySize bounds request bodies accepted by the API (1MB).
	// Signup payloads are small JSON documents; anything near this limit
	// is garbage or abuse.
	DefaultMaxBodySize int64 = 1 << 20

	// DefaultTimeout is the per-request handler deadline.
	DefaultTimeout = 30 * time.Second
)

// MaxBodySize rejects request bodies larger than maxBytes. With no
// argument, DefaultMaxBodySize applies. Reads past the limit fail inside
// the handler's decoder with a *http.MaxBytesError.
func MaxBodySize(maxBytes ...int64) func(http.Handler) http.Handler {
	limit := DefaultMaxBodySize
	if len(maxBytes) > 0 && maxBytes[0] > 0 {
		limit = maxBytes[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout cancels the request context after the given duration and
// answers 504 if the handler has not written anything by then. With no
// argument, DefaultTimeout applies.
func Timeout(timeout ...time.Duration) func(http.Handler) http.Handler {
	d := DefaultTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		d = timeout[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			done := make(chan struct{})

			go func() {
				next.ServeHTTP(dw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if dw.markTimedOut() {
					http.Error(w, "Request timed out", http.StatusGatewayTimeout)
				}
				<-done
			}
		})
	}
}

// deadlineWriter suppresses handler writes once the timeout response has
// been sent, so a late handler cannot interleave with the 504 body.
type deadlineWriter struct {
	http.ResponseWriter
	mu       sync.Mutex
	started  bool
	timedOut bool
}

// markTimedOut reports whether the timeout response may be written. It
// returns false when the handler already started the response.
func (dw *deadlineWriter) markTimedOut() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.started {
		return false
	}
	dw.timedOut = true
	return true
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.timedOut {
		return
	}
	dw.started = true
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.timedOut {
		return len(b), nil
	}
	dw.started = true
	return dw.ResponseWriter.Write(b)
}
