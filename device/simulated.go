package device

import (
	"sync"

	"github.com/pkg/errors"
)

// Simulated models an accelerator with a caching allocator. Freed memory
// stays reserved until EmptyCache is called, which is how training
// runtimes behave and why reserved memory is what probes report.
type Simulated struct {
	mu        sync.Mutex
	info      Info
	external  uint64 // held by other processes
	allocated uint64
	reserved  uint64
	peak      uint64
}

// NewSimulated returns a device with info.TotalMemory bytes of capacity,
// of which external bytes are already held by other processes.
func NewSimulated(info Info, external uint64) *Simulated {
	if info.Kind == "" {
		info.Kind = KindCUDA
	}
	if info.Name == "" {
		info.Name = "simulated"
	}
	return &Simulated{info: info, external: external}
}

// Info returns the device descriptor.
func (s *Simulated) Info() Info {
	return s.info
}

// Allocate claims n bytes, growing the reserved pool when needed.
func (s *Simulated) Allocate(n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	need := s.allocated + n
	if need > s.reserved {
		if need+s.external > s.info.TotalMemory {
			free := uint64(0)
			if s.info.TotalMemory > s.reserved+s.external {
				free = s.info.TotalMemory - s.reserved - s.external
			}
			return errors.Wrapf(ErrOutOfMemory, "%s: tried to allocate %.2f GiB (%.2f GiB free)",
				s.info, ToGiB(n), ToGiB(free))
		}
		s.reserved = need
	}
	s.allocated = need
	if s.reserved > s.peak {
		s.peak = s.reserved
	}
	return nil
}

// Free releases n bytes back to the cache.
func (s *Simulated) Free(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.allocated {
		n = s.allocated
	}
	s.allocated -= n
}

// Peak returns the highest reserved figure seen since the last ResetPeak.
func (s *Simulated) Peak() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// ResetPeak sets the peak back to the current reservation.
func (s *Simulated) ResetPeak() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peak = s.reserved
}

func (s *Simulated) check(dev Info) error {
	if !s.info.Same(dev) {
		return errors.Wrapf(ErrNoDevice, "%s", dev)
	}
	return nil
}

func (s *Simulated) TotalMemory(dev Info) (uint64, error) {
	if err := s.check(dev); err != nil {
		return 0, err
	}
	return s.info.TotalMemory, nil
}

func (s *Simulated) MemoryReserved(dev Info) (uint64, error) {
	if err := s.check(dev); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserved, nil
}

func (s *Simulated) MemoryAllocated(dev Info) (uint64, error) {
	if err := s.check(dev); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocated, nil
}

func (s *Simulated) EmptyCache(dev Info) error {
	if err := s.check(dev); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved = s.allocated
	return nil
}
