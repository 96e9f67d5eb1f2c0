// Package autobatch estimates the largest training batch size that keeps
// accelerator memory near a target utilisation. It probes a short ladder of
// batch sizes, fits memory use against batch size with a straight line and
// solves that line for the memory budget.
package autobatch

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/sammcj/autobatch/device"
	"github.com/sammcj/autobatch/logging"
)

const (
	DefaultImageSize         = 640
	DefaultFraction          = 0.9
	DefaultFallbackBatchSize = 16

	prefix        = "AutoBatch: "
	probeChannels = 3
)

// DefaultCandidates is the probe ladder, smallest first.
var DefaultCandidates = []int{1, 2, 4, 8, 16}

// Estimator computes batch sizes. The zero value is not usable; call New.
type Estimator struct {
	memory     device.Memory
	prober     Prober
	logger     Logger
	fraction   float64
	fallback   int
	candidates []int
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithFraction sets the share of device memory to target.
func WithFraction(f float64) Option {
	return func(e *Estimator) { e.fraction = f }
}

// WithFallbackBatchSize sets the batch size returned for models on the CPU.
func WithFallbackBatchSize(n int) Option {
	return func(e *Estimator) { e.fallback = n }
}

// WithCandidates replaces the probe ladder.
func WithCandidates(sizes ...int) Option {
	return func(e *Estimator) { e.candidates = append([]int(nil), sizes...) }
}

// WithLogger sets where progress lines are written.
func WithLogger(l Logger) Option {
	return func(e *Estimator) { e.logger = l }
}

// New returns an Estimator that reads device statistics from mem and
// measures candidates with prober.
func New(mem device.Memory, prober Prober, opts ...Option) (*Estimator, error) {
	e := &Estimator{
		memory:     mem,
		prober:     prober,
		fraction:   DefaultFraction,
		fallback:   DefaultFallbackBatchSize,
		candidates: append([]int(nil), DefaultCandidates...),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Default()
	}

	if e.memory == nil || e.prober == nil {
		return nil, fmt.Errorf("autobatch: memory and prober are required")
	}
	if !(e.fraction > 0 && e.fraction <= 1) {
		return nil, fmt.Errorf("autobatch: fraction must be in (0, 1], got %v", e.fraction)
	}
	if len(e.candidates) == 0 {
		return nil, fmt.Errorf("autobatch: at least one candidate batch size is required")
	}
	for i, b := range e.candidates {
		if b <= 0 {
			return nil, fmt.Errorf("autobatch: candidate batch size %d is not positive", b)
		}
		if i > 0 && b <= e.candidates[i-1] {
			return nil, fmt.Errorf("autobatch: candidates must be strictly increasing (%d after %d)", b, e.candidates[i-1])
		}
	}
	return e, nil
}

// Estimate returns the batch size expected to use the target fraction of
// the model's device memory.
func (e *Estimator) Estimate(ctx context.Context, m Model, imageSize int) (int, error) {
	r, err := e.EstimateResult(ctx, m, imageSize)
	if err != nil {
		return 0, err
	}
	return r.BatchSize, nil
}

// EstimateResult is Estimate with the measurements behind the answer.
func (e *Estimator) EstimateResult(ctx context.Context, m Model, imageSize int) (*Result, error) {
	if imageSize <= 0 {
		return nil, fmt.Errorf("autobatch: image size must be positive, got %d", imageSize)
	}
	e.logf(zerolog.InfoLevel, "Computing optimal batch size for --imgsz %d", imageSize)

	dev, ok := m.AcceleratorDevice()
	if !ok || !dev.IsAccelerator() {
		e.logf(zerolog.InfoLevel, "CUDA not detected, using default CPU batch-size %d", e.fallback)
		return &Result{
			BatchSize: e.fallback,
			Fallback:  true,
			Device:    device.Info{Kind: device.KindCPU},
			ImageSize: imageSize,
			Fraction:  e.fraction,
		}, nil
	}

	r := &Result{Device: dev, ImageSize: imageSize, Fraction: e.fraction}
	if err := e.readMemory(r); err != nil {
		return nil, err
	}
	e.logf(zerolog.InfoLevel, "%s (%s) %.2fG total, %.2fG reserved, %.2fG allocated, %.2fG free",
		dev, dev.Name, r.TotalGiB, r.ReservedGiB, r.AllocatedGiB, r.FreeGiB)

	for _, b := range e.candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := Input{BatchSize: b, Channels: probeChannels, Height: imageSize, Width: imageSize}
		s, err := e.probe(ctx, m, dev, in)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.ProbeError = err.Error()
			e.logf(zerolog.WarnLevel, "%v", err)
			break
		}
		r.Samples = append(r.Samples, s)
	}

	xs, ys := usable(r.Samples)
	fit, err := Polyfit1(xs, ys)
	if err != nil {
		return nil, fmt.Errorf("autobatch: %s with %d usable samples: %w", dev, len(xs), err)
	}
	if !(fit.Slope > 0) {
		return nil, fmt.Errorf("autobatch: %s: %w: slope %.4g GiB per image", dev, ErrDegenerateFit, fit.Slope)
	}
	r.Fit = &fit

	b := fit.Solve(r.TargetGiB())
	if math.IsNaN(b) || math.Abs(b) > math.MaxInt32 {
		return nil, fmt.Errorf("autobatch: %s: %w: solution %v out of range", dev, ErrDegenerateFit, b)
	}
	r.BatchSize = int(b)

	e.logf(zerolog.InfoLevel, "Using batch-size %d for %s %.2fG/%.2fG (%.0f%%)",
		r.BatchSize, dev, r.TotalGiB*e.fraction, r.TotalGiB, e.fraction*100)
	return r, nil
}

func (e *Estimator) readMemory(r *Result) error {
	total, err := e.memory.TotalMemory(r.Device)
	if err != nil {
		return fmt.Errorf("autobatch: total memory of %s: %w", r.Device, err)
	}
	reserved, err := e.memory.MemoryReserved(r.Device)
	if err != nil {
		return fmt.Errorf("autobatch: reserved memory of %s: %w", r.Device, err)
	}
	allocated, err := e.memory.MemoryAllocated(r.Device)
	if err != nil {
		return fmt.Errorf("autobatch: allocated memory of %s: %w", r.Device, err)
	}
	r.TotalGiB = device.ToGiB(total)
	r.ReservedGiB = device.ToGiB(reserved)
	r.AllocatedGiB = device.ToGiB(allocated)
	r.FreeGiB = r.TotalGiB - (r.ReservedGiB + r.AllocatedGiB)
	return nil
}

// probe runs one candidate and hands cached memory back to the device on
// every exit path, including a panic inside the prober.
func (e *Estimator) probe(ctx context.Context, m Model, dev device.Info, in Input) (s Sample, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("probe batch-size %d panicked: %v", in.BatchSize, p)
		}
		if cerr := e.memory.EmptyCache(dev); cerr != nil && err == nil {
			err = fmt.Errorf("release cache after batch-size %d: %w", in.BatchSize, cerr)
		}
	}()
	s, err = e.prober.Probe(ctx, m, in)
	if err != nil {
		return Sample{}, err
	}
	if s.BatchSize == 0 {
		s.BatchSize = in.BatchSize
	}
	return s, nil
}

func (e *Estimator) logf(level zerolog.Level, format string, args ...any) {
	e.logger.Log(level, prefix+fmt.Sprintf(format, args...))
}

// usable drops samples without a memory reading. Each memory value stays
// paired with the batch size that produced it.
func usable(samples []Sample) (xs, ys []float64) {
	for _, s := range samples {
		if !(s.MemoryGiB > 0) {
			continue
		}
		xs = append(xs, float64(s.BatchSize))
		ys = append(ys, s.MemoryGiB)
	}
	return xs, ys
}
