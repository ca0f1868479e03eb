package middleware

import (
	"net/http"

	"github.com/skillsenselab/parakeet/util"
)

const defaultMaxBodySize = 500 * 1024 * 1024 // 500MB

// BodySizeLimit returns middleware that restricts the request body to the
// given size string (e.g. "500MB", "512KB", "1GB"). Uploads beyond the limit
// fail once the handler reads past it.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
