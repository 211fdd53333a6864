package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var actionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docsearch_actions_total",
		Help: "Total API actions processed, by tenant, action and outcome.",
	},
	[]string{"tenant", "action", "outcome"},
)

// RecordAction counts one processed action.
func RecordAction(tenant, action string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	actionsTotal.WithLabelValues(tenant, action, outcome).Inc()
}

// Handler exposes the prometheus metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
