package listener

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outboxDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_outbox_dispatched_total",
		Help: "Outbox delivery outcomes, labeled by message kind and result",
	}, []string{"kind", "result"})

	savingsMatured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_savings_matured_total",
		Help: "Savings accounts completed by the maturity sweep",
	})

	savingsInterestApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_savings_interest_applied_total",
		Help: "Daily interest credits applied to savings accounts",
	})
)
