package telemetry

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// cpuSample is the window CPU usage is averaged over.
const cpuSample = 500 * time.Millisecond

type hostSource struct{}

// NewHostSource reads the local machine through gopsutil.
func NewHostSource() Source {
	return hostSource{}
}

func (hostSource) CPUPercent(ctx context.Context) (float64, error) {
	pct, err := cpu.PercentWithContext(ctx, cpuSample, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, nil
	}
	return pct[0], nil
}

func (hostSource) Memory(ctx context.Context) (Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, err
	}
	m := Memory{Total: vm.Total, Available: vm.Available, Used: vm.Used}
	if vm.Total > 0 {
		m.Percent = int(float64(vm.Used)/float64(vm.Total)*100 + 0.5)
	}
	return m, nil
}

func (hostSource) Disks(ctx context.Context) ([]Disk, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]Disk, 0, len(parts))
	for _, p := range parts {
		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			// unreadable mounts (permissions, stale network fs) are skipped
			continue
		}
		out = append(out, Disk{
			FS:         p.Device,
			Type:       p.Fstype,
			Size:       u.Total,
			Used:       u.Used,
			Available:  u.Free,
			UsePercent: u.UsedPercent,
		})
	}
	return out, nil
}

func (hostSource) Network(ctx context.Context) ([]NetInterface, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]NetInterface, 0, len(counters))
	for _, c := range counters {
		out = append(out, NetInterface{Iface: c.Name, RxBytes: c.BytesRecv, TxBytes: c.BytesSent})
	}
	return out, nil
}

func (hostSource) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// processes exit while being listed
			continue
		}
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		memPct, _ := p.MemoryPercentWithContext(ctx)
		out = append(out, Process{PID: p.Pid, Name: name, CPU: cpuPct, Mem: memPct})
	}
	return out, nil
}
