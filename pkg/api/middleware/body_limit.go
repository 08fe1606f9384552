package middleware

import "net/http"

// DefaultMaxBodyBytes bounds request bodies. A full document save is the
// largest legitimate payload.
const DefaultMaxBodyBytes int64 = 8 << 20

// BodySizeLimit rejects bodies larger than maxBytes. A declared
// Content-Length over the limit is refused before the handler runs; an
// undeclared one fails when the handler reads past the limit.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
