package autobatch

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sammcj/autobatch/device"
)

func TestRenderReport(t *testing.T) {
	r := &Result{
		BatchSize:    24,
		Device:       cuda0,
		ImageSize:    640,
		Fraction:     0.9,
		TotalGiB:     16,
		ReservedGiB:  1,
		AllocatedGiB: 0.5,
		FreeGiB:      14.5,
		Samples: []Sample{
			{BatchSize: 1, Elapsed: 12 * time.Millisecond, MemoryGiB: 1.5},
			{BatchSize: 2, Elapsed: 20 * time.Millisecond, MemoryGiB: 2.0},
			{BatchSize: 4, Elapsed: 35 * time.Millisecond, MemoryGiB: 3.0},
		},
		Fit:        &Fit{Slope: 0.5, Intercept: 1},
		ProbeError: "out of memory",
	}

	out := RenderReport(r)
	assert.Contains(t, out, "CUDA:0 (Test GPU) at --imgsz 640")
	assert.Contains(t, out, "BATCH")
	assert.Contains(t, out, "12.0")
	assert.Contains(t, out, "3.000")
	assert.Contains(t, out, "probing stopped: out of memory")
	assert.Contains(t, out, "memory ≈ 0.5000 GiB × batch + 1.0000 GiB")
	assert.Contains(t, out, "targeting 13.05G (90%)")
	assert.Contains(t, out, "Using batch-size 24")
}

func TestRenderReportFallback(t *testing.T) {
	out := RenderReport(&Result{BatchSize: 16, Fallback: true, Device: device.Info{Kind: device.KindCPU}})
	assert.Contains(t, out, "No accelerator detected, using default batch-size 16")
	assert.False(t, strings.Contains(out, "BATCH"))
}

func TestUtilisationBarClamps(t *testing.T) {
	assert.Equal(t, utilisationBar(20, 16, 40), utilisationBar(16, 16, 40))
	assert.Equal(t, utilisationBar(-1, 16, 40), utilisationBar(0, 16, 40))
	assert.NotEmpty(t, utilisationBar(1, 0, 40))
}

func TestRenderReportWidthDefaults(t *testing.T) {
	r := &Result{BatchSize: 4, Device: cuda0, TotalGiB: 8, FreeGiB: 6, Fraction: 0.9, Fit: &Fit{Slope: 1, Intercept: 1}}
	assert.Equal(t, RenderReport(r), RenderReportWidth(r, 0))
	assert.NotEqual(t, RenderReport(r), RenderReportWidth(r, 20))
}
