package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	voteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evoting_vote_requests_total",
		Help: "Total de requisicoes de voto recebidas por resultado",
	}, []string{"status"})

	orchestrationStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evoting_orchestration_steps_total",
		Help: "Etapas de publicacao executadas por resultado",
	}, []string{"step", "outcome"})

	orchestrationStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evoting_orchestration_step_duration_seconds",
		Help:    "Duracao de cada etapa da publicacao de resultados",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	publishJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evoting_publish_jobs_total",
		Help: "Jobs de publicacao consumidos pelo worker por resultado",
	}, []string{"outcome"})
)

func ObserveVoteRequest(status string) {
	voteRequestsTotal.WithLabelValues(status).Inc()
}

func ObserveStep(step, outcome string, seconds float64) {
	orchestrationStepsTotal.WithLabelValues(step, outcome).Inc()
	orchestrationStepDuration.WithLabelValues(step).Observe(seconds)
}

func ObservePublishJob(outcome string) {
	publishJobsTotal.WithLabelValues(outcome).Inc()
}
