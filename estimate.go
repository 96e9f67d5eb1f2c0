package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sammcj/autobatch/autobatch"
	"github.com/sammcj/autobatch/config"
	"github.com/sammcj/autobatch/device"
	"github.com/sammcj/autobatch/footprint"
	"github.com/sammcj/autobatch/logging"
	"github.com/sammcj/autobatch/metrics"
)

// estimateOutput is the --json document.
type estimateOutput struct {
	RunID     string              `json:"run_id"`
	Network   footprint.Network   `json:"network"`
	Precision autobatch.Precision `json:"precision"`
	*autobatch.Result
}

func newEstimateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the optimal training batch size",
		Long: `Places the network on the selected device, probes each candidate batch size
with a simulated training step and prints the batch size that fills the
configured fraction of free memory.

Without an accelerator the fallback batch size is printed unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEstimate(cmd.Context(), cmd.OutOrStdout(), asJSON)
		},
	}

	d := config.DefaultConfig()
	f := cmd.Flags()
	f.StringP("network", "n", d.Network, "network preset ("+strings.Join(footprint.PresetNames(), ", ")+") or YAML footprint file")
	f.Int("imgsz", d.ImageSize, "training image size in pixels")
	f.Float64("fraction", d.Fraction, "fraction of free device memory to target")
	f.IntP("batch-size", "b", d.FallbackBatchSize, "batch size used when no accelerator is available")
	f.StringP("device", "d", d.Device, "device: auto, cpu, cuda:N or sim")
	f.Float64("sim-total-gib", d.SimTotalGiB, "memory of the simulated device in GiB")
	f.IntSlice("candidates", d.Candidates, "batch sizes to probe, strictly increasing")
	f.Int("runs", d.ProbeRuns, "passes averaged per probe")
	f.Bool("amp", d.MixedPrecision, "probe under mixed precision on a training clone")
	f.String("metrics-file", d.MetricsFile, "write Prometheus gauges to this textfile")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func (a *app) runEstimate(ctx context.Context, out io.Writer, asJSON bool) error {
	cfg := a.cfg
	runID := uuid.NewString()

	network, err := footprint.LoadNetwork(cfg.Network)
	if err != nil {
		return err
	}

	target, err := resolveDevice(ctx, cfg.Device, cfg.SimTotalGiB)
	if err != nil {
		return err
	}

	model, err := footprint.NewModel(network, target.accelerator)
	if err != nil {
		return err
	}
	defer model.Close()

	est, err := autobatch.New(target.memory, footprint.NewProfiler(cfg.ProbeRuns),
		autobatch.WithFraction(cfg.Fraction),
		autobatch.WithFallbackBatchSize(cfg.FallbackBatchSize),
		autobatch.WithCandidates(cfg.Candidates...),
		autobatch.WithLogger(logging.Default().With("run_id", runID)),
	)
	if err != nil {
		return err
	}

	var r *autobatch.Result
	if cfg.MixedPrecision {
		r, err = est.CheckTrainBatchSizeResult(ctx, model, cfg.ImageSize)
	} else {
		model.Train()
		r, err = est.EstimateResult(ctx, model, cfg.ImageSize)
	}
	if err != nil {
		return fmt.Errorf("estimate batch size for %s: %w", network.Name, err)
	}

	logging.DebugLogger.Debug().
		Str("run_id", runID).
		Str("network", network.Name).
		Str("device", r.Device.String()).
		Int("batch_size", r.BatchSize).
		Msg("estimate complete")

	if cfg.MetricsFile != "" {
		rec := metrics.New()
		rec.Record(r, network.Name, time.Now())
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if asJSON {
		precision := autobatch.PrecisionFull
		if cfg.MixedPrecision {
			precision = autobatch.PrecisionMixed
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(estimateOutput{RunID: runID, Network: network, Precision: precision, Result: r})
	}

	fmt.Fprint(out, autobatch.RenderReportWidth(r, barWidth(out)))
	return nil
}

// target is where the network is placed and whose memory is queried.
type target struct {
	memory      device.Memory
	accelerator *device.Simulated // nil keeps the model on the host
}

// resolveDevice turns a selector into a probe target. A detected NVIDIA GPU
// seeds a simulated device with its capacity and the memory other processes
// already hold.
func resolveDevice(ctx context.Context, selector string, simTotalGiB float64) (target, error) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "sim", "simulated":
		sim := device.NewSimulated(device.Info{
			Kind:        device.KindCUDA,
			Name:        "simulated",
			TotalMemory: device.FromGiB(simTotalGiB),
		}, 0)
		return target{memory: sim, accelerator: sim}, nil
	case "auto":
		if device.NVIDIAAvailable() {
			gpus, err := device.QueryNVIDIA(ctx)
			if err == nil && len(gpus) > 0 {
				return gpuTarget(gpus[0]), nil
			}
			logging.DebugLogger.Debug().Err(err).Msg("No usable NVIDIA GPU, using host")
		}
		return hostTarget()
	}

	info, err := device.ParseSelector(selector)
	if err != nil {
		return target{}, err
	}
	if !info.IsAccelerator() {
		return hostTarget()
	}
	gpu, err := device.FindNVIDIA(ctx, info.Index)
	if err != nil {
		return target{}, err
	}
	return gpuTarget(gpu), nil
}

func gpuTarget(g device.GPU) target {
	sim := device.NewSimulated(g.Info, g.Used)
	return target{memory: sim, accelerator: sim}
}

func hostTarget() (target, error) {
	info, err := device.HostMemory()
	if err != nil {
		return target{}, err
	}
	return target{memory: device.NewSimulated(info, 0)}, nil
}

// barWidth sizes the utilisation bar to the terminal, if out is one.
func barWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return autobatch.DefaultBarWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		logging.DebugLogger.Debug().Err(err).Msg("Error getting terminal size")
		return autobatch.DefaultBarWidth
	}
	return clampWidth(width - 40)
}

func clampWidth(w int) int {
	const minWidth, maxWidth = 20, 80
	if w < minWidth {
		return minWidth
	}
	if w > maxWidth {
		return maxWidth
	}
	return w
}
