package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "researcher_runs_started_total",
		Help: "Research runs accepted over the API.",
	})
	runsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "researcher_runs_completed_total",
		Help: "Research runs finished, by final status.",
	}, []string{"status"})
	emailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "researcher_email_deliveries_total",
		Help: "Report email delivery attempts, by outcome.",
	}, []string{"outcome"})
)
