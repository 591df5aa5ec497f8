// Package promscope exports container resolution metrics to Prometheus.
//
//	observer, err := promscope.NewObserver(prometheus.DefaultRegisterer, "app")
//	provider, err := collection.Build(scopedi.WithObserver(observer))
package promscope

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/junioryono/scopedi"
)

// Observer counts resolutions and times constructions. It implements
// scopedi.Observer.
type Observer struct {
	resolutions  *prometheus.CounterVec
	construction *prometheus.HistogramVec
	depth        prometheus.Histogram
}

var _ scopedi.Observer = (*Observer)(nil)

// NewObserver creates an Observer and registers its collectors with reg.
func NewObserver(reg prometheus.Registerer, namespace string) (*Observer, error) {
	o := &Observer{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scopedi",
			Name:      "resolutions_total",
			Help:      "Service resolutions by service, lifetime and outcome.",
		}, []string{"service", "lifetime", "outcome"}),
		construction: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scopedi",
			Name:      "construction_duration_seconds",
			Help:      "Time spent in service factories.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"service", "lifetime"}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scopedi",
			Name:      "resolution_depth",
			Help:      "Length of the resolution path when a service was constructed.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}

	for _, c := range []prometheus.Collector{o.resolutions, o.construction, o.depth} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register scopedi metrics: %w", err)
		}
	}

	return o, nil
}

// MustNewObserver is like NewObserver but panics on error.
func MustNewObserver(reg prometheus.Registerer, namespace string) *Observer {
	o, err := NewObserver(reg, namespace)
	if err != nil {
		panic(err)
	}
	return o
}

// ObserveResolution records e.
func (o *Observer) ObserveResolution(e scopedi.ResolutionEvent) {
	service := "<nil>"
	if e.ServiceType != nil {
		service = e.ServiceType.String()
	}
	lifetime := e.Lifetime.String()

	o.resolutions.WithLabelValues(service, lifetime, e.Outcome.String()).Inc()

	if e.Outcome == scopedi.OutcomeConstructed {
		o.construction.WithLabelValues(service, lifetime).Observe(e.Duration.Seconds())
		o.depth.Observe(float64(e.Depth))
	}
}
