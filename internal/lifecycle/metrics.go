// internal/lifecycle/metrics.go
package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the lifecycle counters.
type Metrics struct {
	RecordsCreated *prometheus.CounterVec
	RecordsUpdated *prometheus.CounterVec
	RecordsDeleted *prometheus.CounterVec
	LoansExpired   prometheus.Counter
}

// NewMetrics creates the counters and registers them on reg. A nil reg leaves
// them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediatheque_records_created_total",
			Help: "Records created, by kind",
		}, []string{"kind"}),
		RecordsUpdated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediatheque_records_updated_total",
			Help: "Records updated, by kind",
		}, []string{"kind"}),
		RecordsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediatheque_records_deleted_total",
			Help: "Records deleted one at a time, by kind",
		}, []string{"kind"}),
		LoansExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "mediatheque_loans_expired_total",
			Help: "Loans removed by the return-date cleanup",
		}),
	}
}
