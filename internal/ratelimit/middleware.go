package ratelimit

import (
	"math"
	"net/http"
	"strconv"
)

// ClientIP returns the RemoteAddr host. Forwarded headers are honoured only
// through RealIP, which rewrites RemoteAddr for trusted proxies.
func ClientIP(r *http.Request) string {
	return remoteHost(r)
}

type Options struct {
	Store *Store
	KeyFn func(*http.Request) string

	// OnReject, when set, is called for every rejected request.
	OnReject func(r *http.Request, key string)
	// Reject writes the 429 response. Defaults to a plain text body.
	Reject http.HandlerFunc
}

// Middleware rejects requests whose key has no token left with 429 and a
// Retry-After header. A nil Store disables limiting.
func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ClientIP
	}
	if opts.Reject == nil {
		opts.Reject = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		if opts.Store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			lim := opts.Store.Get(key)

			res := lim.Reserve()
			if !res.OK() {
				reject(w, r, opts, key, 1)
				return
			}
			if d := res.Delay(); d > 0 {
				res.Cancel()
				reject(w, r, opts, key, int(math.Ceil(d.Seconds())))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, opts Options, key string, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	if opts.OnReject != nil {
		opts.OnReject(r, key)
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	opts.Reject(w, r)
}
