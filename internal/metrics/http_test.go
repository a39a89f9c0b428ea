package metrics

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/louisbranch/datapulse/internal/platform/httpx"
)

func TestInstrumentHTTPRecordsRouteTemplate(t *testing.T) {
	t.Parallel()

	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /data/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "" {
			t.Errorf("expected path value for id")
		}
		w.WriteHeader(http.StatusOK)
	})
	h := m.InstrumentHTTP(mux)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/data/42", nil))

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/data/{id}", "200")); got != 1 {
		t.Fatalf("count{/data/{id},200} = %v, want 1", got)
	}
}

func TestInstrumentHTTPLabelsUnmatchedRoutes(t *testing.T) {
	t.Parallel()

	m := New()
	h := m.InstrumentHTTP(http.NewServeMux())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/no-such-route", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, unmatchedEndpoint, "404")); got != 1 {
		t.Fatalf("count{unmatched,404} = %v, want 1", got)
	}
}

func TestInstrumentHTTPUsesWrittenStatus(t *testing.T) {
	t.Parallel()

	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /data", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	h := m.InstrumentHTTP(mux)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/data", nil))

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodPost, "/data", "201")); got != 1 {
		t.Fatalf("count{/data,201} = %v, want 1", got)
	}
}

func TestInstrumentHTTPDefaultsToOKWithoutExplicitHeader(t *testing.T) {
	t.Parallel()

	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /data", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("[]")); err != nil {
			t.Errorf("write body: %v", err)
		}
	})
	h := m.InstrumentHTTP(mux)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/data", nil))

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/data", "200")); got != 1 {
		t.Fatalf("count{/data,200} = %v, want 1", got)
	}
}

func TestInstrumentHTTPTracksInProgressGauge(t *testing.T) {
	t.Parallel()

	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /data", func(w http.ResponseWriter, _ *http.Request) {
		if got := testutil.ToFloat64(m.inProgressRequests); got != 1 {
			t.Errorf("in-progress during request = %v, want 1", got)
		}
		w.WriteHeader(http.StatusOK)
	})
	h := m.InstrumentHTTP(mux)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/data", nil))

	if got := testutil.ToFloat64(m.inProgressRequests); got != 0 {
		t.Fatalf("in-progress after request = %v, want 0", got)
	}
}

func TestInstrumentHTTPRecordsPanicSentinelAndRepanics(t *testing.T) {
	t.Parallel()

	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})
	h := m.InstrumentHTTP(mux)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		h.ServeHTTP(rr, req)
	}()

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/boom", "500")); got != 1 {
		t.Fatalf("count{/boom,500} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inProgressRequests); got != 0 {
		t.Fatalf("in-progress after panic = %v, want 0", got)
	}
}

func TestInstrumentHTTPWithRecoveryMiddlewareRecords500(t *testing.T) {
	t.Parallel()

	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})
	h := httpx.Chain(mux, m.InstrumentHTTP, httpx.RecoverPanic())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/boom", "500")); got != 1 {
		t.Fatalf("count{/boom,500} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inProgressRequests); got != 0 {
		t.Fatalf("in-progress after recovered panic = %v, want 0", got)
	}
}

func TestInstrumentHTTPConcurrentRequestsCountExactly(t *testing.T) {
	t.Parallel()

	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /data", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := m.InstrumentHTTP(mux)

	const requests = 100
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/data", nil))
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/data", "200")); got != requests {
		t.Fatalf("count{/data,200} = %v, want %d", got, requests)
	}
	if got := testutil.ToFloat64(m.inProgressRequests); got != 0 {
		t.Fatalf("in-progress after burst = %v, want 0", got)
	}
}

func TestEndpointLabelStripsMethodPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{name: "method and path", pattern: "GET /data/{id}", want: "/data/{id}"},
		{name: "path only", pattern: "/metrics", want: "/metrics"},
		{name: "empty", pattern: "", want: unmatchedEndpoint},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := endpointLabel(tc.pattern); got != tc.want {
				t.Fatalf("endpointLabel(%q) = %q, want %q", tc.pattern, got, tc.want)
			}
		})
	}
}
