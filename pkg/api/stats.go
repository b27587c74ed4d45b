package api

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats are resource statistics of the machine running the proxy.
type HostStats struct {
	CPUPercent  float64 `json:"cpuPercent"`
	CPUCores    int     `json:"cpuCores"`
	MemTotalMB  uint64  `json:"memTotalMb"`
	MemUsedMB   uint64  `json:"memUsedMb"`
	MemPercent  float64 `json:"memPercent"`
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB uint64  `json:"heapAllocMb"`
}

const mb = 1024 * 1024

// ReadHostStats reads the host statistics with gopsutil.
func ReadHostStats(ctx context.Context) (*HostStats, error) {
	percent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st := &HostStats{
		CPUCores:    runtime.NumCPU(),
		MemTotalMB:  vm.Total / mb,
		MemUsedMB:   vm.Used / mb,
		MemPercent:  vm.UsedPercent,
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: ms.HeapAlloc / mb,
	}
	if len(percent) != 0 {
		st.CPUPercent = percent[0]
	}
	return st, nil
}
