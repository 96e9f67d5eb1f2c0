package autobatch

import (
	"context"
	"fmt"
	"io"
)

// CheckTrainBatchSize estimates on a training-mode copy of m under mixed
// precision. m itself is left untouched.
func (e *Estimator) CheckTrainBatchSize(ctx context.Context, m Trainable, imageSize int) (int, error) {
	r, err := e.CheckTrainBatchSizeResult(ctx, m, imageSize)
	if err != nil {
		return 0, err
	}
	return r.BatchSize, nil
}

// CheckTrainBatchSizeResult is CheckTrainBatchSize with measurements.
func (e *Estimator) CheckTrainBatchSizeResult(ctx context.Context, m Trainable, imageSize int) (r *Result, err error) {
	clone, err := m.Clone()
	if err != nil {
		return nil, fmt.Errorf("autobatch: clone model: %w", err)
	}
	if c, ok := clone.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); cerr != nil && err == nil {
				r = nil
				err = fmt.Errorf("autobatch: release model copy: %w", cerr)
			}
		}()
	}

	clone.Train()
	prev := clone.SetPrecision(PrecisionMixed)
	defer clone.SetPrecision(prev)

	return e.EstimateResult(ctx, clone, imageSize)
}
