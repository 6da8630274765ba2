package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ecertify",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "证书渲染耗时分布（秒）。",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"target", "outcome"},
	)

	renderInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ecertify",
			Subsystem: "render",
			Name:      "in_flight",
			Help:      "当前正在渲染的证书数量。",
		},
	)
)

// ObserveRender 记录一次渲染的耗时与结果。target 取 pdf/raster/thumbnail。
func ObserveRender(target string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	renderDuration.WithLabelValues(target, outcome).Observe(time.Since(start).Seconds())
}

// RenderStarted 标记一次渲染开始，返回的函数在渲染结束时调用。
func RenderStarted() func() {
	renderInFlight.Inc()
	return renderInFlight.Dec
}
