// Package metrics 记录一次发现运行的计数，可导出为 node_exporter textfile
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "toffeelive"

// Metrics 一次运行内的计数器和仪表。nil 接收者上的方法均为空操作。
type Metrics struct {
	registry           *prometheus.Registry
	channels           prometheus.Gauge
	unresolved         prometheus.Gauge
	credentialAttempts *prometheus.CounterVec
	navigations        *prometheus.CounterVec
	fetches            *prometheus.CounterVec
	runDuration        prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	channels := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "channels_discovered",
		Help:      "Number of channels with a resolved stream URL in the last run",
	})
	unresolved := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "channels_unresolved",
		Help:      "Number of channel references dropped because no manifest was found",
	})
	credentialAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_attempts_total",
		Help:      "Credential acquisition attempts by result",
	}, []string{"result"})
	navigations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "browser_navigations_total",
		Help:      "Watch page navigations by result",
	}, []string{"result"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_fetches_total",
		Help:      "Upstream GET requests by host and status",
	}, []string{"host", "status"})
	runDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of the last discovery run",
	})

	registry.MustRegister(
		channels,
		unresolved,
		credentialAttempts,
		navigations,
		fetches,
		runDuration,
	)

	return &Metrics{
		registry:           registry,
		channels:           channels,
		unresolved:         unresolved,
		credentialAttempts: credentialAttempts,
		navigations:        navigations,
		fetches:            fetches,
		runDuration:        runDuration,
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveCredentialAttempt 记录一次凭证获取尝试
func (m *Metrics) ObserveCredentialAttempt(ok bool) {
	if m == nil {
		return
	}
	m.credentialAttempts.WithLabelValues(result(ok)).Inc()
}

// ObserveNavigation 记录一次观看页导航
func (m *Metrics) ObserveNavigation(ok bool) {
	if m == nil {
		return
	}
	m.navigations.WithLabelValues(result(ok)).Inc()
}

// ObserveFetch 记录一次 GET，网络错误记为 status="error"
func (m *Metrics) ObserveFetch(host string, status int, err error) {
	if m == nil {
		return
	}
	label := strconv.Itoa(status)
	if err != nil {
		label = "error"
	}
	m.fetches.WithLabelValues(host, label).Inc()
}

// SetResult 记录运行结果
func (m *Metrics) SetResult(channels, unresolved int, seconds float64) {
	if m == nil {
		return
	}
	m.channels.Set(float64(channels))
	m.unresolved.Set(float64(unresolved))
	m.runDuration.Set(seconds)
}

// WriteTextfile 以 textfile collector 格式写出全部指标
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
