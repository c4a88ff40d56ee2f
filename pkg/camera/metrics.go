package camera

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes acquisition counters. A nil *Metrics records nothing.
type Metrics struct {
	framesCaptured prometheus.Counter
	readFailures   prometheus.Counter
	reconnects     *prometheus.CounterVec
	snapshots      *prometheus.CounterVec
	connected      prometheus.Gauge
	streaming      prometheus.Gauge
	lastFrame      prometheus.Gauge
}

// NewMetrics creates the camera metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camframe_frames_captured_total",
			Help: "Frames read from the camera and stored in the frame buffer",
		}),
		readFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camframe_read_failures_total",
			Help: "Reads that returned no frame while the capture was open",
		}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camframe_reconnects_total",
			Help: "Reconnect attempts by the acquisition loop",
		}, []string{"result"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camframe_snapshots_total",
			Help: "Snapshot requests by result",
		}, []string{"result"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camframe_connected",
			Help: "1 while the active camera is connected",
		}),
		streaming: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camframe_streaming",
			Help: "1 while the acquisition loop is running",
		}),
		lastFrame: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camframe_last_frame_timestamp_seconds",
			Help: "Unix time of the most recent stored frame",
		}),
	}

	reg.MustRegister(
		m.framesCaptured,
		m.readFailures,
		m.reconnects,
		m.snapshots,
		m.connected,
		m.streaming,
		m.lastFrame,
	)
	return m
}

func (m *Metrics) frameCaptured(at time.Time) {
	if m == nil {
		return
	}
	m.framesCaptured.Inc()
	m.lastFrame.Set(float64(at.UnixNano()) / 1e9)
}

func (m *Metrics) readFailed() {
	if m == nil {
		return
	}
	m.readFailures.Inc()
}

func (m *Metrics) reconnected(ok bool) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) snapshot(ok bool) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) setConnected(v bool) {
	if m == nil {
		return
	}
	m.connected.Set(gauge(v))
}

func (m *Metrics) setStreaming(v bool) {
	if m == nil {
		return
	}
	m.streaming.Set(gauge(v))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func gauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
