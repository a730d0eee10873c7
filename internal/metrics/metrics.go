// Package metrics は Prometheus のメトリクス定義をまとめます。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションが記録するメトリクスの集合です。
type Metrics struct {
	AuthEvents     *prometheus.CounterVec
	StoreConnects  *prometheus.CounterVec
	StoreConnected prometheus.Gauge
}

// New はメトリクスを作成し、reg に登録します。
// reg が nil の場合は登録しません（テスト用）。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todo_api",
			Name:      "auth_events_total",
			Help:      "Authentication events by event and outcome.",
		}, []string{"event", "outcome"}),
		StoreConnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todo_api",
			Name:      "store_connect_attempts_total",
			Help:      "Document store connection attempts by result.",
		}, []string{"result"}),
		StoreConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "todo_api",
			Name:      "store_connected",
			Help:      "1 when the document store connection is established.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.AuthEvents, m.StoreConnects, m.StoreConnected)
	}
	return m
}

// AuthEvent は認証イベントを1件記録します。nil レシーバーでも安全に呼べます。
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event, outcome).Inc()
}

// StoreAttempt は接続試行の結果を記録します。
func (m *Metrics) StoreAttempt(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.StoreConnects.WithLabelValues("success").Inc()
		m.StoreConnected.Set(1)
		return
	}
	m.StoreConnects.WithLabelValues("failure").Inc()
}
