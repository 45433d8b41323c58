package authapi

import "github.com/prometheus/client_golang/prometheus"

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_api_requests_total",
		Help: "Total auth API calls by endpoint and normalized outcome",
	},
	[]string{"endpoint", "outcome"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}
