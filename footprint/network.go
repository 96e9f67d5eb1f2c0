// Package footprint describes a network by the memory and compute one
// training step costs, so batch sizes can be probed on a simulated
// accelerator instead of a live training runtime.
package footprint

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sammcj/autobatch/autobatch"
)

const (
	// WorkspaceMiB is the default scratch memory the runtime keeps per device.
	WorkspaceMiB = 500

	bytesFP32 = 4
	bytesFP16 = 2
)

// Network is the training-step cost model of one architecture.
type Network struct {
	Name       string  `yaml:"name" json:"name"`
	Parameters float64 `yaml:"parameters" json:"parameters"`
	// ActivationsPerPixel is the number of activation values kept for the
	// backward pass per input element of one image.
	ActivationsPerPixel float64 `yaml:"activations_per_pixel" json:"activations_per_pixel"`
	// FLOPsPerPixel is the forward-pass cost per input element.
	FLOPsPerPixel   float64 `yaml:"flops_per_pixel" json:"flops_per_pixel"`
	OptimizerStates int     `yaml:"optimizer_states" json:"optimizer_states"`
	WorkspaceMiB    float64 `yaml:"workspace_mib" json:"workspace_mib"`
}

// Presets are the YOLOv5 family at their published sizes.
var Presets = map[string]Network{
	"yolov5n": {Name: "yolov5n", Parameters: 1.9e6, ActivationsPerPixel: 45, FLOPsPerPixel: 3.7e3, OptimizerStates: 1},
	"yolov5s": {Name: "yolov5s", Parameters: 7.2e6, ActivationsPerPixel: 90, FLOPsPerPixel: 1.34e4, OptimizerStates: 1},
	"yolov5m": {Name: "yolov5m", Parameters: 21.2e6, ActivationsPerPixel: 175, FLOPsPerPixel: 4.0e4, OptimizerStates: 1},
	"yolov5l": {Name: "yolov5l", Parameters: 46.5e6, ActivationsPerPixel: 270, FLOPsPerPixel: 8.9e4, OptimizerStates: 1},
	"yolov5x": {Name: "yolov5x", Parameters: 86.7e6, ActivationsPerPixel: 420, FLOPsPerPixel: 1.67e5, OptimizerStates: 1},
}

// PresetNames lists the presets in a stable order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadNetwork resolves ref as a preset name first and a YAML file second.
func LoadNetwork(ref string) (Network, error) {
	if n, ok := Presets[strings.ToLower(ref)]; ok {
		return n, nil
	}
	f, err := os.Open(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return Network{}, fmt.Errorf("network %q is neither a preset (%s) nor a file", ref, strings.Join(PresetNames(), ", "))
		}
		return Network{}, fmt.Errorf("open network file: %w", err)
	}
	defer f.Close()
	return ParseNetwork(f)
}

// ParseNetwork decodes and validates a YAML network description.
func ParseNetwork(r io.Reader) (Network, error) {
	var n Network
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&n); err != nil {
		return Network{}, fmt.Errorf("decode network: %w", err)
	}
	if err := n.Validate(); err != nil {
		return Network{}, err
	}
	return n, nil
}

// Validate checks the cost model is usable.
func (n Network) Validate() error {
	if n.Name == "" {
		return fmt.Errorf("network name is required")
	}
	if n.Parameters <= 0 {
		return fmt.Errorf("network %s: parameters must be > 0", n.Name)
	}
	if n.ActivationsPerPixel <= 0 {
		return fmt.Errorf("network %s: activations_per_pixel must be > 0", n.Name)
	}
	if n.FLOPsPerPixel < 0 || n.OptimizerStates < 0 || n.WorkspaceMiB < 0 {
		return fmt.Errorf("network %s: flops_per_pixel, optimizer_states and workspace_mib must not be negative", n.Name)
	}
	return nil
}

// WeightBytes is the resident cost of the parameters, their gradients and
// the optimizer state, all kept in fp32.
func (n Network) WeightBytes() uint64 {
	copies := 2 + float64(n.OptimizerStates)
	return uint64(math.Ceil(n.Parameters * bytesFP32 * copies))
}

// WorkspaceBytes is the scratch memory a step needs regardless of batch size.
func (n Network) WorkspaceBytes() uint64 {
	ws := n.WorkspaceMiB
	if ws == 0 {
		ws = WorkspaceMiB
	}
	return uint64(ws * (1 << 20))
}

// ActivationBytes is the memory held between the forward and backward pass.
func (n Network) ActivationBytes(in autobatch.Input, p autobatch.Precision) uint64 {
	per := float64(bytesFP32)
	if p == autobatch.PrecisionMixed {
		per = bytesFP16
	}
	return uint64(math.Ceil(float64(in.BatchSize) * float64(in.Pixels()) * n.ActivationsPerPixel * per))
}

// StepFLOPs is the cost of one forward and backward pass; backward costs
// roughly twice the forward pass.
func (n Network) StepFLOPs(in autobatch.Input) float64 {
	return 3 * n.FLOPsPerPixel * float64(in.BatchSize) * float64(in.Pixels())
}
