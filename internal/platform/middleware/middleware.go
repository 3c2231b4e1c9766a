// Package middleware carries the cross-cutting HTTP middleware.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"gtind/pkg/requestcontext"
)

const requestIDHeader = "X-Request-Id"

// RequestContext stamps every request with an id and the arrival time.
// Handlers and services read both through pkg/requestcontext, which keeps
// time injectable in tests.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), id)
		ctx = requestcontext.WithTime(ctx, time.Now())
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
