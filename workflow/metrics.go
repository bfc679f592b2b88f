package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock",
		Name:      "transactions_total",
		Help:      "Processed transactions by kind and outcome.",
	}, []string{"kind", "outcome"})

	stockUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock",
		Name:      "updates_total",
		Help:      "Ledger updates by outcome (applied, not_found, error).",
	}, []string{"outcome"})

	recipeExpansionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock",
		Name:      "recipe_expansions_total",
		Help:      "Recipe write-offs by outcome (expanded, recipe_not_found, error).",
	}, []string{"outcome"})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stock",
		Name:      "alerts_total",
		Help:      "Low-stock alerts by outcome (queued, dropped, sent, skipped, failed).",
	}, []string{"outcome"})
)
