// Package metrics exposes an estimate as Prometheus gauges, written to a
// node_exporter textfile so scheduled runs can be scraped.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sammcj/autobatch/autobatch"
)

// Recorder holds the gauges of one run on a private registry.
type Recorder struct {
	Registry *prometheus.Registry

	batchSize    *prometheus.GaugeVec
	fallback     *prometheus.GaugeVec
	memoryGiB    *prometheus.GaugeVec
	probeMemory  *prometheus.GaugeVec
	probeSeconds *prometheus.GaugeVec
	fit          *prometheus.GaugeVec
	lastRun      prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		Registry: reg,
		batchSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autobatch_batch_size",
			Help: "Estimated training batch size.",
		}, []string{"device", "network"}),
		fallback: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autobatch_fallback",
			Help: "1 when the default batch size was used because no accelerator was found.",
		}, []string{"device", "network"}),
		memoryGiB: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autobatch_memory_gib",
			Help: "Device memory at estimation time, by kind (total, reserved, allocated, free, target, predicted).",
		}, []string{"device", "kind"}),
		probeMemory: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autobatch_probe_memory_gib",
			Help: "Memory reserved while probing a candidate batch size.",
		}, []string{"device", "batch_size"}),
		probeSeconds: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autobatch_probe_seconds",
			Help: "Time of one training step at a candidate batch size.",
		}, []string{"device", "batch_size"}),
		fit: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autobatch_fit_gib",
			Help: "Linear memory model coefficients (slope per image, intercept).",
		}, []string{"device", "coefficient"}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "autobatch_last_run_timestamp_seconds",
			Help: "Unix time the estimate was recorded.",
		}),
	}
}

// Record sets every gauge from r.
func (m *Recorder) Record(r *autobatch.Result, network string, now time.Time) {
	dev := r.Device.String()

	m.batchSize.WithLabelValues(dev, network).Set(float64(r.BatchSize))
	fallback := 0.0
	if r.Fallback {
		fallback = 1
	}
	m.fallback.WithLabelValues(dev, network).Set(fallback)
	m.lastRun.Set(float64(now.Unix()))

	if r.Fallback {
		return
	}

	m.memoryGiB.WithLabelValues(dev, "total").Set(r.TotalGiB)
	m.memoryGiB.WithLabelValues(dev, "reserved").Set(r.ReservedGiB)
	m.memoryGiB.WithLabelValues(dev, "allocated").Set(r.AllocatedGiB)
	m.memoryGiB.WithLabelValues(dev, "free").Set(r.FreeGiB)
	m.memoryGiB.WithLabelValues(dev, "target").Set(r.TargetGiB())
	m.memoryGiB.WithLabelValues(dev, "predicted").Set(r.PredictedGiB())

	for _, s := range r.Samples {
		b := strconv.Itoa(s.BatchSize)
		m.probeMemory.WithLabelValues(dev, b).Set(s.MemoryGiB)
		m.probeSeconds.WithLabelValues(dev, b).Set(s.Elapsed.Seconds())
	}

	if r.Fit != nil {
		m.fit.WithLabelValues(dev, "slope").Set(r.Fit.Slope)
		m.fit.WithLabelValues(dev, "intercept").Set(r.Fit.Intercept)
	}
}

// WriteTextfile atomically writes the registry in text exposition format.
func (m *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
