// Package metrics exports token issuance and validation counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	auth "github.com/goliatone/go-stateless-auth"
)

const namespace = "stateless_auth"

// Observer counts token events per audience and outcome.
type Observer struct {
	issued    *prometheus.CounterVec
	validated *prometheus.CounterVec
}

var _ auth.ValidationObserver = (*Observer)(nil)

// NewObserver creates an observer and registers its collectors with reg.
// A nil reg skips registration.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens minted, by audience.",
		}, []string{"audience"}),
		validated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_validated_total",
			Help:      "Token validation outcomes, by audience.",
		}, []string{"audience", "outcome"}),
	}

	if reg == nil {
		return o, nil
	}

	for _, c := range []prometheus.Collector{o.issued, o.validated} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return o, nil
}

func (o *Observer) TokenIssued(audience auth.Audience) {
	o.issued.WithLabelValues(string(audience)).Inc()
}

func (o *Observer) TokenValidated(audience auth.Audience, outcome string) {
	o.validated.WithLabelValues(string(audience), outcome).Inc()
}

// Issued exposes the issuance counter.
func (o *Observer) Issued() *prometheus.CounterVec { return o.issued }

// Validated exposes the validation counter.
func (o *Observer) Validated() *prometheus.CounterVec { return o.validated }
