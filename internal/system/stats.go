package system

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a point-in-time snapshot attached to render reports.
type HostStats struct {
	LogicalCPUs    int     `json:"logical_cpus"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemTotalMB     uint64  `json:"mem_total_mb"`
	MemAvailableMB uint64  `json:"mem_available_mb"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	GoroutineCount int     `json:"goroutines"`
	ProcessHeapMB  uint64  `json:"heap_mb"`
}

// CollectHostStats samples CPU load over interval. Sampling failures leave
// the corresponding fields zero.
func CollectHostStats(interval time.Duration) HostStats {
	s := HostStats{GoroutineCount: runtime.NumGoroutine()}

	if n, err := cpu.Counts(true); err == nil {
		s.LogicalCPUs = n
	} else {
		s.LogicalCPUs = runtime.NumCPU()
	}
	if pct, err := cpu.Percent(interval, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemTotalMB = vm.Total / 1024 / 1024
		s.MemAvailableMB = vm.Available / 1024 / 1024
		s.MemUsedPercent = vm.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.ProcessHeapMB = ms.HeapAlloc / 1024 / 1024
	return s
}

// MarshalZerologObject lets the snapshot be logged with Object().
func (s HostStats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("cpus", s.LogicalCPUs).
		Float64("cpu_pct", s.CPUPercent).
		Uint64("mem_total_mb", s.MemTotalMB).
		Uint64("mem_avail_mb", s.MemAvailableMB).
		Float64("mem_used_pct", s.MemUsedPercent).
		Int("goroutines", s.GoroutineCount).
		Uint64("heap_mb", s.ProcessHeapMB)
}

// SuggestWorkers caps a requested worker count by the number of logical
// CPUs and by available memory, assuming ~256MB per decoded image.
func SuggestWorkers(requested int, s HostStats) int {
	n := requested
	if n <= 0 {
		n = s.LogicalCPUs
	}
	if s.LogicalCPUs > 0 && n > s.LogicalCPUs {
		n = s.LogicalCPUs
	}
	if s.MemAvailableMB > 0 {
		if byMem := int(s.MemAvailableMB / 256); byMem < n {
			n = byMem
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}
