package handler

import (
	"net/http"
	"strconv"

	ratelimit "placeclaim/internal/ratelimit/models"
)

// rateLimitHeaders advertises the budget left after the limiter checked the
// request. Routes that do not consult the limiter get no headers.
func rateLimitHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, sink := ratelimit.WithResultSink(r.Context())
		next.ServeHTTP(&limitWriter{ResponseWriter: w, sink: sink}, r.WithContext(ctx))
	})
}

type limitWriter struct {
	http.ResponseWriter
	sink        *ratelimit.ResultSink
	wroteHeader bool
}

func (lw *limitWriter) WriteHeader(code int) {
	if !lw.wroteHeader {
		lw.wroteHeader = true
		if result := lw.sink.Result(); result != nil && result.Limit > 0 {
			h := lw.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			if !result.Allowed && h.Get("Retry-After") == "" {
				h.Set("Retry-After", strconv.Itoa(result.RetryAfterSeconds()))
			}
		}
	}
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *limitWriter) Write(b []byte) (int, error) {
	if !lw.wroteHeader {
		lw.WriteHeader(http.StatusOK)
	}
	return lw.ResponseWriter.Write(b)
}
