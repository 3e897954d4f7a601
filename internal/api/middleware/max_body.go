package middleware

import (
	"fmt"
	"log"
	"net/http"

	"github.com/cloo-solutions/paddock/internal/api"
)

// LimitBody caps the size of request bodies. Requests that declare a larger
// Content-Length are rejected before the handler runs; bodies of unknown
// length are cut off at the limit and the handler sees an
// *http.MaxBytesError. Bodiless methods pass through untouched.
func LimitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || !carriesBody(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				log.Printf("request %s: rejected %s %s: body of %d bytes exceeds %d",
					GetRequestID(r.Context()), r.Method, r.URL.Path, r.ContentLength, limit)
				api.ErrorWithDetails(w, http.StatusRequestEntityTooLarge, "request body too large",
					fmt.Sprintf("request bodies are limited to %d bytes", limit))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
