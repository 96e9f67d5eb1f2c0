// Package device describes the compute units a model can live on and the
// memory queries the batch-size estimator needs from them.
package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies the class of compute unit.
type Kind string

const (
	KindCPU  Kind = "cpu"
	KindCUDA Kind = "cuda"
)

// GiB is the divisor used for every memory figure reported in gibibytes.
const GiB = 1 << 30

var (
	// ErrOutOfMemory is returned when an allocation would exceed device capacity.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrNoDevice is returned when a query names a device that does not exist.
	ErrNoDevice = errors.New("no such device")
)

// Info identifies a compute unit. It is read-only and supplied by the
// execution environment.
type Info struct {
	Kind        Kind   `json:"kind"`
	Index       int    `json:"index"`
	Name        string `json:"name"`
	TotalMemory uint64 `json:"total_memory"`
}

// IsAccelerator reports whether the device has dedicated memory worth probing.
func (i Info) IsAccelerator() bool {
	return i.Kind != "" && i.Kind != KindCPU
}

// String renders the device the way training logs usually name it, e.g. CUDA:0.
func (i Info) String() string {
	if !i.IsAccelerator() {
		return "CPU"
	}
	return fmt.Sprintf("%s:%d", strings.ToUpper(string(i.Kind)), i.Index)
}

// Same reports whether two descriptors refer to the same device.
func (i Info) Same(o Info) bool {
	return i.Kind == o.Kind && i.Index == o.Index
}

// Memory is the accelerator memory API. All figures are bytes.
type Memory interface {
	TotalMemory(dev Info) (uint64, error)
	MemoryReserved(dev Info) (uint64, error)
	MemoryAllocated(dev Info) (uint64, error)
	// EmptyCache returns cached but unused memory to the device.
	EmptyCache(dev Info) error
}

// ToGiB converts a byte count to gibibytes.
func ToGiB(b uint64) float64 {
	return float64(b) / GiB
}

// FromGiB converts gibibytes to a byte count.
func FromGiB(g float64) uint64 {
	if g <= 0 {
		return 0
	}
	return uint64(g * GiB)
}

// ParseSelector parses a device selector such as "cpu", "cuda", "cuda:1" or "0".
func ParseSelector(s string) (Info, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "cpu":
		return Info{Kind: KindCPU}, nil
	case "cuda", "gpu":
		return Info{Kind: KindCUDA}, nil
	}

	idx := s
	if kind, rest, ok := strings.Cut(s, ":"); ok {
		if kind != string(KindCUDA) && kind != "gpu" {
			return Info{}, errors.Errorf("unknown device kind %q", kind)
		}
		idx = rest
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return Info{}, errors.Errorf("invalid device selector %q", s)
	}
	return Info{Kind: KindCUDA, Index: n}, nil
}
