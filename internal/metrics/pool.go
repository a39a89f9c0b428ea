package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PoolStats exposes live connection pool statistics.
type PoolStats interface {
	Stats() sql.DBStats
}

// RefreshPoolStats reads the pool state and sets the three pool gauges.
// With no pool available the refresh is skipped and previously published
// values remain. WaitCount stands in for current waiters: the pool reports
// how many acquisitions had to wait, not how many are waiting now.
func (m *Metrics) RefreshPoolStats(pool PoolStats) {
	if pool == nil {
		return
	}
	stats := pool.Stats()
	m.poolCheckedOut.Set(float64(stats.InUse))
	m.poolIdle.Set(float64(stats.Idle))
	m.poolWaiters.Set(float64(stats.WaitCount))
}

// Handler serves the text exposition. Pool gauges refresh before each
// serialization so every scrape reports current pool state.
func (m *Metrics) Handler(pool PoolStats) http.Handler {
	exposition := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RefreshPoolStats(pool)
		exposition.ServeHTTP(w, r)
	})
}
