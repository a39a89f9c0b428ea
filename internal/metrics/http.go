package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// unmatchedEndpoint labels requests that resolved to no registered route,
// keeping endpoint label cardinality bounded by the route table.
const unmatchedEndpoint = "unmatched"

// InstrumentHTTP wraps a handler with request accounting: the in-progress
// gauge rises for the lifetime of the request, and on completion the request
// counter and latency histogram record under {method, endpoint, http_status}.
// The deferred record runs on every exit path; a panic records the 500
// sentinel, restores the gauge, and is re-raised.
func (m *Metrics) InstrumentHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inProgressRequests.Inc()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			recovered := recover()
			status := rec.status
			if recovered != nil {
				status = http.StatusInternalServerError
			}
			m.recordRequest(r.Method, endpointLabel(r.Pattern), status, time.Since(start))
			m.inProgressRequests.Dec()
			if recovered != nil {
				panic(recovered)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

func (m *Metrics) recordRequest(method, endpoint string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, endpoint, code).Inc()
	m.requestDuration.WithLabelValues(method, endpoint, code).Observe(duration.Seconds())
}

// endpointLabel reduces a matched route pattern to its path template. The
// serve mux assigns r.Pattern before invoking the handler, so the deferred
// record sees the template even when the handler panics.
func endpointLabel(pattern string) string {
	if pattern == "" {
		return unmatchedEndpoint
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

// statusRecorder captures the first status code written to the response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.status = http.StatusOK
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}
