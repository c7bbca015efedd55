package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the survey counters exported on /metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	responsesSubmitted *prometheus.CounterVec
	surveyActivations  *prometheus.CounterVec
	surveyDeactivation prometheus.Counter
	sessionsStarted    *prometheus.CounterVec
	cacheRequests      *prometheus.CounterVec
}

// NewCollector registers the counters on a fresh registry. Tests create their
// own collector so counts never leak between them.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		gatherer: registry,
		responsesSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_responses_submitted_total",
				Help: "Total number of completed survey responses stored",
			},
			[]string{"user_type"},
		),
		surveyActivations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_activations_total",
				Help: "Total number of survey activations by audience",
			},
			[]string{"audience"},
		),
		surveyDeactivation: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "survey_deactivations_total",
				Help: "Total number of surveys deactivated, directly or by an overlapping activation",
			},
		),
		sessionsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_sessions_started_total",
				Help: "Total number of respondent sessions started",
			},
			[]string{"user_type"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_cache_requests_total",
				Help: "Survey definition cache lookups by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		c.responsesSubmitted,
		c.surveyActivations,
		c.surveyDeactivation,
		c.sessionsStarted,
		c.cacheRequests,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return c
}

func (c *Collector) ResponseSubmitted(userType string) {
	c.responsesSubmitted.WithLabelValues(userType).Inc()
}

func (c *Collector) SurveyActivated(audience string) {
	c.surveyActivations.WithLabelValues(audience).Inc()
}

func (c *Collector) SurveyDeactivated() {
	c.surveyDeactivation.Inc()
}

func (c *Collector) SessionStarted(userType string) {
	c.sessionsStarted.WithLabelValues(userType).Inc()
}

func (c *Collector) CacheRequest(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheRequests.WithLabelValues(result).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
