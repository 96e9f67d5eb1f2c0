package autobatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sammcj/autobatch/device"
)

// Precision is the numeric policy a model computes under.
type Precision string

const (
	PrecisionFull  Precision = "fp32"
	PrecisionMixed Precision = "amp"
)

// Model is anything that can report which device holds its parameters.
type Model interface {
	// AcceleratorDevice returns the accelerator holding the parameters, or
	// false when they live in host memory.
	AcceleratorDevice() (device.Info, bool)
}

// Trainable is a Model that can be copied and switched into training mode.
type Trainable interface {
	Model
	Clone() (Trainable, error)
	Train()
	// SetPrecision switches the numeric policy and returns the previous one.
	SetPrecision(p Precision) Precision
}

// Prober runs a timed forward/backward pass on a zero-filled batch.
type Prober interface {
	Probe(ctx context.Context, m Model, in Input) (Sample, error)
}

// Logger receives one formatted line per call.
type Logger interface {
	Log(level zerolog.Level, msg string)
}

// Input is the shape of a synthetic probe batch: (BatchSize, Channels, Height, Width).
type Input struct {
	BatchSize int `json:"batch_size"`
	Channels  int `json:"channels"`
	Height    int `json:"height"`
	Width     int `json:"width"`
}

// Pixels returns the number of input elements per image.
func (in Input) Pixels() int {
	return in.Channels * in.Height * in.Width
}

// Sample is the outcome of one probe.
type Sample struct {
	BatchSize int           `json:"batch_size"`
	Elapsed   time.Duration `json:"elapsed"`
	MemoryGiB float64       `json:"memory_gib"`
}

// Result is an estimate together with the measurements it was derived from.
type Result struct {
	BatchSize    int         `json:"batch_size"`
	Fallback     bool        `json:"fallback"`
	Device       device.Info `json:"device"`
	ImageSize    int         `json:"image_size"`
	Fraction     float64     `json:"fraction"`
	TotalGiB     float64     `json:"total_gib"`
	ReservedGiB  float64     `json:"reserved_gib"`
	AllocatedGiB float64     `json:"allocated_gib"`
	FreeGiB      float64     `json:"free_gib"`
	Samples      []Sample    `json:"samples,omitempty"`
	Fit          *Fit        `json:"fit,omitempty"`
	ProbeError   string      `json:"probe_error,omitempty"`
}

// TargetGiB is the memory the estimate aims to use.
func (r *Result) TargetGiB() float64 {
	return r.FreeGiB * r.Fraction
}

// PredictedGiB is the memory the fit predicts for the chosen batch size.
func (r *Result) PredictedGiB() float64 {
	if r.Fit == nil {
		return 0
	}
	return r.Fit.Predict(float64(r.BatchSize))
}
