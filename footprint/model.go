package footprint

import (
	"fmt"
	"sync"

	"github.com/sammcj/autobatch/autobatch"
	"github.com/sammcj/autobatch/device"
)

// Model is a Network placed on a device. Placing it on an accelerator
// allocates its weights there until Close.
type Model struct {
	network   Network
	dev       *device.Simulated
	training  bool
	precision autobatch.Precision

	closeOnce sync.Once
}

// NewModel places n on dev. A nil dev keeps the model on the host.
func NewModel(n Network, dev *device.Simulated) (*Model, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	m := &Model{network: n, dev: dev, precision: autobatch.PrecisionFull}
	if dev != nil {
		if err := dev.Allocate(n.WeightBytes()); err != nil {
			return nil, fmt.Errorf("place %s on %s: %w", n.Name, dev.Info(), err)
		}
	}
	return m, nil
}

// Network returns the cost model.
func (m *Model) Network() Network {
	return m.network
}

// Device returns the accelerator the model lives on, or nil.
func (m *Model) Device() *device.Simulated {
	return m.dev
}

func (m *Model) AcceleratorDevice() (device.Info, bool) {
	if m.dev == nil {
		return device.Info{Kind: device.KindCPU, Name: "host"}, false
	}
	return m.dev.Info(), true
}

// Clone copies the model onto the same device, which costs a second set of weights.
func (m *Model) Clone() (autobatch.Trainable, error) {
	c, err := NewModel(m.network, m.dev)
	if err != nil {
		return nil, err
	}
	c.training = m.training
	c.precision = m.precision
	return c, nil
}

func (m *Model) Train() {
	m.training = true
}

// Training reports whether Train has been called.
func (m *Model) Training() bool {
	return m.training
}

func (m *Model) SetPrecision(p autobatch.Precision) autobatch.Precision {
	prev := m.precision
	m.precision = p
	return prev
}

// Precision returns the current numeric policy.
func (m *Model) Precision() autobatch.Precision {
	return m.precision
}

// Close releases the weights held on the device.
func (m *Model) Close() error {
	m.closeOnce.Do(func() {
		if m.dev != nil {
			m.dev.Free(m.network.WeightBytes())
		}
	})
	return nil
}
