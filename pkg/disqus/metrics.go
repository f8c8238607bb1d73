package disqus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var apiRequestsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "disqus_api_requests_total",
	Help: "The total number of Disqus API calls by method and outcome",
}, []string{"method", "outcome"})

var oauthExchangesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "disqus_oauth_exchanges_total",
	Help: "The total number of token endpoint calls by grant type and outcome",
}, []string{"grant_type", "outcome"})
