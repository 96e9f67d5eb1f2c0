package footprint

import (
	"context"
	"fmt"
	"time"

	"github.com/sammcj/autobatch/autobatch"
	"github.com/sammcj/autobatch/device"
)

const (
	// DefaultRuns is how many passes each probe averages over.
	DefaultRuns = 3
	// DefaultThroughput is the fp32 rate used to turn FLOPs into time.
	DefaultThroughput = 20e12
)

// Profiler runs simulated training steps for Models. Elapsed time is
// derived from FLOPs and throughput, so results are repeatable.
type Profiler struct {
	Runs       int
	Throughput float64 // FLOP/s at fp32; mixed precision runs twice as fast
}

// NewProfiler returns a profiler averaging over runs passes.
func NewProfiler(runs int) *Profiler {
	if runs <= 0 {
		runs = DefaultRuns
	}
	return &Profiler{Runs: runs, Throughput: DefaultThroughput}
}

// Probe allocates the activations of one training step, releases them and
// reports the device's reserved memory, which the allocator keeps at the
// step's peak.
func (p *Profiler) Probe(ctx context.Context, m autobatch.Model, in autobatch.Input) (autobatch.Sample, error) {
	fm, ok := m.(*Model)
	if !ok {
		return autobatch.Sample{}, fmt.Errorf("footprint: cannot profile %T", m)
	}
	dev := fm.Device()
	if dev == nil {
		return autobatch.Sample{}, fmt.Errorf("footprint: %s is not on an accelerator", fm.network.Name)
	}

	need := fm.network.ActivationBytes(in, fm.precision) + fm.network.WorkspaceBytes()
	runs := p.Runs
	if runs <= 0 {
		runs = DefaultRuns
	}

	var total time.Duration
	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return autobatch.Sample{}, err
		}
		if err := dev.Allocate(need); err != nil {
			return autobatch.Sample{}, fmt.Errorf("batch-size %d: %w", in.BatchSize, err)
		}
		total += p.stepTime(fm, in)
		dev.Free(need)
	}

	reserved, err := dev.MemoryReserved(dev.Info())
	if err != nil {
		return autobatch.Sample{}, err
	}
	return autobatch.Sample{
		BatchSize: in.BatchSize,
		Elapsed:   total / time.Duration(runs),
		MemoryGiB: device.ToGiB(reserved),
	}, nil
}

func (p *Profiler) stepTime(m *Model, in autobatch.Input) time.Duration {
	rate := p.Throughput
	if rate <= 0 {
		rate = DefaultThroughput
	}
	if m.precision == autobatch.PrecisionMixed {
		rate *= 2
	}
	return time.Duration(m.network.StepFLOPs(in) / rate * float64(time.Second))
}
