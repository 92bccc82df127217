package ringbus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ringbus"

type busMetrics struct {
	registerer  prometheus.Registerer
	published   prometheus.Counter
	lapped      prometheus.Counter
	subscribers prometheus.GaugeFunc
	cursor      prometheus.GaugeFunc
}

func newBusMetrics(registerer prometheus.Registerer, b *Bus) (*busMetrics, error) {
	m := &busMetrics{
		registerer: registerer,
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "published_total",
			Help:      "Number of events published to the bus.",
		}),
		lapped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lapped_total",
			Help:      "Number of events lost by subscribers that were lapped.",
		}),
		subscribers: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "subscribers",
			Help:      "Number of registered subscribers.",
		}, func() float64 {
			return float64(b.ring.Sequencer().GatingCount())
		}),
		cursor: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cursor",
			Help:      "Highest sequence claimed by a publisher.",
		}, func() float64 {
			return float64(b.Cursor())
		}),
	}
	collectors := m.collectors()
	for i, c := range collectors {
		if err := registerer.Register(c); err != nil {
			for _, registered := range collectors[:i] {
				registerer.Unregister(registered)
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *busMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.published, m.lapped, m.subscribers, m.cursor}
}

func (m *busMetrics) unregister() {
	for _, c := range m.collectors() {
		m.registerer.Unregister(c)
	}
}
