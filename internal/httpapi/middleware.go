package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"Newsletterwebserver/internal/ratelimit"
)

type ctxKey int

const requestIDKey ctxKey = iota

const maxRequestIDLen = 64

// RequestID tags each request with an id, reusing a well-formed incoming
// X-Request-Id header from the reverse proxy.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if !validRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// area names the surface a path belongs to in request logs.
func area(path string) string {
	switch {
	case hasPathPrefix(path, "/api"):
		return "api"
	case hasPathPrefix(path, "/admin"):
		return "admin"
	case hasPathPrefix(path, "/commercant"):
		return "merchant"
	default:
		return "public"
	}
}

// quietPath reports requests only logged at debug level.
func quietPath(path string) bool {
	return path == "/healthz" || path == "/metrics" || strings.Contains(path, "/static/")
}

func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case quietPath(r.URL.Path):
				level = slog.LevelDebug
			}

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"area", area(r.URL.Path),
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", ratelimit.ClientIP(r),
			}
			if rid, ok := GetRequestID(r.Context()); ok {
				fields = append(fields, "request_id", rid)
			}
			logger.Log(r.Context(), level, "http request", fields...)
		})
	}
}

// Recoverer turns a handler panic into a 500: a JSON envelope under /api,
// plain text elsewhere. onPanic may be nil.
func Recoverer(logger *slog.Logger, isProd bool, onPanic func()) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if onPanic != nil {
					onPanic()
				}
				if isProd {
					logger.Error("panic", "path", r.URL.Path, "panic", rec)
				} else {
					logger.Error("panic", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				}
				if hasPathPrefix(r.URL.Path, "/api") {
					WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
					return
				}
				http.Error(w, "Erreur interne du serveur", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}
