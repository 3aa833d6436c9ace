package orchestra

import "github.com/prometheus/client_golang/prometheus"

var TransactionsPrepared = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "orchestra",
	Subsystem: "diffstore",
	Name:      "transactions_prepared",
})

var TransactionsApplied = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "orchestra",
	Subsystem: "diffstore",
	Name:      "transactions_applied",
})

var Rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orchestra",
	Subsystem: "diffstore",
	Name:      "rejected",
}, []string{"reason"})

var RoundsAdvanced = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "orchestra",
	Subsystem: "diffstore",
	Name:      "rounds_advanced",
})

var CurrentRound = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "orchestra",
	Subsystem: "diffstore",
	Name:      "current_recno",
}, []string{"peer"})

// Collectors lists the engine metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{TransactionsPrepared, TransactionsApplied, Rejected, RoundsAdvanced, CurrentRound}
}
