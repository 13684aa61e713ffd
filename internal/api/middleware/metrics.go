package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/typerush/typerush/internal/metrics"
	"github.com/typerush/typerush/internal/middleware"
)

// Metrics creates middleware recording per-route request counts and
// latency. The mux route template is used as the label so path variables
// don't explode cardinality.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &middleware.ResponseWriter{ResponseWriter: w}
			next.ServeHTTP(wrapped, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if template, err := current.GetPathTemplate(); err == nil {
					route = template
				}
			}

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTPRequest(route, r.Method, strconv.Itoa(status), time.Since(start).Seconds())
		})
	}
}
