package device

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const mib = 1 << 20

var nvidiaQuery = []string{
	"--query-gpu=index,name,memory.total,memory.used,memory.free",
	"--format=csv,noheader,nounits",
}

// GPU is one row of nvidia-smi output.
type GPU struct {
	Info
	Used uint64 `json:"used"`
	Free uint64 `json:"free"`
}

// NVIDIAAvailable reports whether nvidia-smi can be found on this host.
func NVIDIAAvailable() bool {
	if runtime.GOOS == "darwin" {
		return false
	}
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// QueryNVIDIA lists the NVIDIA GPUs visible to this process.
func QueryNVIDIA(ctx context.Context) ([]GPU, error) {
	if !NVIDIAAvailable() {
		return nil, ErrNoDevice
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "nvidia-smi", nvidiaQuery...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrapf(err, "nvidia-smi: %s", strings.TrimSpace(stderr.String()))
	}
	return parseNVIDIASMI(bytes.NewReader(out))
}

// FindNVIDIA returns the GPU with the given index.
func FindNVIDIA(ctx context.Context, index int) (GPU, error) {
	gpus, err := QueryNVIDIA(ctx)
	if err != nil {
		return GPU{}, err
	}
	for _, g := range gpus {
		if g.Index == index {
			return g, nil
		}
	}
	return GPU{}, errors.Wrapf(ErrNoDevice, "cuda:%d", index)
}

func parseNVIDIASMI(r io.Reader) ([]GPU, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 5

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse nvidia-smi output")
	}

	gpus := make([]GPU, 0, len(records))
	for _, rec := range records {
		index, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, errors.Wrapf(err, "gpu index %q", rec[0])
		}
		var mem [3]uint64
		for i, field := range rec[2:] {
			v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "gpu %d memory field %q", index, field)
			}
			mem[i] = v * mib
		}
		gpus = append(gpus, GPU{
			Info: Info{
				Kind:        KindCUDA,
				Index:       index,
				Name:        strings.TrimSpace(rec[1]),
				TotalMemory: mem[0],
			},
			Used: mem[1],
			Free: mem[2],
		})
	}
	return gpus, nil
}
