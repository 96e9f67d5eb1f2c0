package device

import (
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostMemory describes the host as a CPU device.
func HostMemory() (Info, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return Info{}, errors.Wrap(err, "failed to get system memory info")
	}
	return Info{
		Kind:        KindCPU,
		Name:        "host",
		TotalMemory: vmStat.Total,
	}, nil
}

// HostAvailable returns the memory the host can hand out without swapping.
func HostAvailable() (uint64, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get system memory info")
	}
	return vmStat.Available, nil
}
