package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcj/autobatch/autobatch"
	"github.com/sammcj/autobatch/device"
)

func sampleResult() *autobatch.Result {
	return &autobatch.Result{
		BatchSize:    24,
		Device:       device.Info{Kind: device.KindCUDA, Index: 0, Name: "Sim GPU", TotalMemory: 16 * device.GiB},
		ImageSize:    640,
		Fraction:     0.9,
		TotalGiB:     16,
		ReservedGiB:  1,
		AllocatedGiB: 0.5,
		FreeGiB:      14.5,
		Samples: []autobatch.Sample{
			{BatchSize: 1, Elapsed: 10 * time.Millisecond, MemoryGiB: 1.5},
			{BatchSize: 2, Elapsed: 20 * time.Millisecond, MemoryGiB: 2},
		},
		Fit: &autobatch.Fit{Slope: 0.5, Intercept: 1},
	}
}

func TestRecord(t *testing.T) {
	m := New()
	m.Record(sampleResult(), "yolov5s", time.Unix(1700000000, 0))

	assert.Equal(t, 24.0, testutil.ToFloat64(m.batchSize.WithLabelValues("CUDA:0", "yolov5s")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.fallback.WithLabelValues("CUDA:0", "yolov5s")))
	assert.Equal(t, 14.5, testutil.ToFloat64(m.memoryGiB.WithLabelValues("CUDA:0", "free")))
	assert.InDelta(t, 13.05, testutil.ToFloat64(m.memoryGiB.WithLabelValues("CUDA:0", "target")), 1e-9)
	assert.Equal(t, 13.0, testutil.ToFloat64(m.memoryGiB.WithLabelValues("CUDA:0", "predicted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.probeMemory.WithLabelValues("CUDA:0", "2")))
	assert.Equal(t, 0.01, testutil.ToFloat64(m.probeSeconds.WithLabelValues("CUDA:0", "1")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.fit.WithLabelValues("CUDA:0", "slope")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastRun))
}

func TestRecordFallback(t *testing.T) {
	m := New()
	m.Record(&autobatch.Result{BatchSize: 16, Fallback: true, Device: device.Info{Kind: device.KindCPU}}, "yolov5s", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallback.WithLabelValues("CPU", "yolov5s")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.memoryGiB))
	assert.Equal(t, 0, testutil.CollectAndCount(m.probeMemory))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Record(sampleResult(), "yolov5s", time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "autobatch.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `autobatch_batch_size{device="CUDA:0",network="yolov5s"} 24`)
	assert.Contains(t, text, `autobatch_probe_memory_gib{batch_size="1",device="CUDA:0"} 1.5`)
	assert.Contains(t, text, "# HELP autobatch_fit_gib")
}
