package autobatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcj/autobatch/device"
)

type fakeTrainable struct {
	dev       device.Info
	training  bool
	precision Precision
	closed    bool
	cloneErr  error
	clones    []*fakeTrainable
}

func (m *fakeTrainable) AcceleratorDevice() (device.Info, bool) { return m.dev, true }

func (m *fakeTrainable) Clone() (Trainable, error) {
	if m.cloneErr != nil {
		return nil, m.cloneErr
	}
	c := &fakeTrainable{dev: m.dev, training: m.training, precision: m.precision}
	m.clones = append(m.clones, c)
	return c, nil
}

func (m *fakeTrainable) Train() { m.training = true }

func (m *fakeTrainable) SetPrecision(p Precision) Precision {
	prev := m.precision
	m.precision = p
	return prev
}

func (m *fakeTrainable) Close() error {
	m.closed = true
	return nil
}

func TestCheckTrainBatchSizeUsesIsolatedCopy(t *testing.T) {
	original := &fakeTrainable{dev: cuda0, precision: PrecisionFull}

	var probed []*fakeTrainable
	var states []Precision
	prober := &linearProber{slope: 0.5, intercept: 1}
	prober.onProbe = func(m Model) {
		ft := m.(*fakeTrainable)
		probed = append(probed, ft)
		states = append(states, ft.precision)
		assert.True(t, ft.training, "probes run in training mode")
	}
	e, _ := newTestEstimator(t, newTestMemory(), prober)

	b, err := e.CheckTrainBatchSize(context.Background(), original, 640)
	require.NoError(t, err)
	assert.Equal(t, 24, b)

	require.Len(t, original.clones, 1)
	clone := original.clones[0]
	for i, m := range probed {
		assert.Same(t, clone, m, "probe %d ran on the clone", i)
		assert.Equal(t, PrecisionMixed, states[i])
	}

	assert.False(t, original.training, "caller's model stays in its original mode")
	assert.Equal(t, PrecisionFull, original.precision)
	assert.Equal(t, PrecisionFull, clone.precision, "precision restored after estimation")
	assert.True(t, clone.closed)
}

func TestCheckTrainBatchSizeCloneError(t *testing.T) {
	boom := errors.New("no memory for a copy")
	original := &fakeTrainable{dev: cuda0, cloneErr: boom}
	prober := &linearProber{slope: 0.5, intercept: 1}
	e, _ := newTestEstimator(t, newTestMemory(), prober)

	_, err := e.CheckTrainBatchSize(context.Background(), original, 640)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, prober.calls)
}
