// Package telemetry gathers host metrics for the agent heartbeat.
package telemetry

import (
	"context"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// TopProcesses is how many processes a snapshot reports, busiest first.
const TopProcesses = 10

type Memory struct {
	Total     uint64 `json:"total"`
	Available uint64 `json:"available"`
	Used      uint64 `json:"used"`
	Percent   int    `json:"percent"`
}

type Disk struct {
	FS         string  `json:"fs"`
	Type       string  `json:"type"`
	Size       uint64  `json:"size"`
	Used       uint64  `json:"used"`
	Available  uint64  `json:"available"`
	UsePercent float64 `json:"use_percent"`
}

type NetInterface struct {
	Iface   string `json:"iface"`
	RxBytes uint64 `json:"rx_bytes"`
	TxBytes uint64 `json:"tx_bytes"`
}

type Process struct {
	PID  int32   `json:"pid"`
	Name string  `json:"name"`
	CPU  float64 `json:"cpu"`
	Mem  float32 `json:"mem"`
}

// Snapshot is the metrics document sent to the server. A failed collection still yields
// a snapshot with Error set and empty sections.
type Snapshot struct {
	Hostname    string         `json:"hostname"`
	CPUPercent  int            `json:"cpu_percent"`
	Memory      Memory         `json:"memory"`
	Disk        []Disk         `json:"disk"`
	Network     []NetInterface `json:"network"`
	Processes   []Process      `json:"processes"`
	Error       string         `json:"error,omitempty"`
	CollectedAt time.Time      `json:"collected_at"`
}

// Degraded reports whether the snapshot came from a failed collection.
func (s Snapshot) Degraded() bool {
	return s.Error != ""
}

// Source reads raw host statistics.
type Source interface {
	CPUPercent(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (Memory, error)
	Disks(ctx context.Context) ([]Disk, error)
	Network(ctx context.Context) ([]NetInterface, error)
	Processes(ctx context.Context) ([]Process, error)
}

type Collector struct {
	source   Source
	hostname func() (string, error)
	now      func() time.Time
}

type Option func(*Collector)

func WithHostname(fn func() (string, error)) Option {
	return func(c *Collector) { c.hostname = fn }
}

func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// NewCollector reads from src. Pass NewHostSource() for the real host.
func NewCollector(src Source, opts ...Option) *Collector {
	c := &Collector{
		source:   src,
		hostname: os.Hostname,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hostname is the id the server will derive for this agent.
func (c *Collector) Hostname() string {
	name, err := c.hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}

// Collect reads every section concurrently. It never returns an error: any failure yields
// the empty fallback snapshot tagged with the cause.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	snap := Snapshot{Hostname: c.Hostname(), CollectedAt: c.now()}

	var (
		cpuPercent float64
		mem        Memory
		disks      []Disk
		nics       []NetInterface
		procs      []Process
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { cpuPercent, err = c.source.CPUPercent(gctx); return err })
	g.Go(func() (err error) { mem, err = c.source.Memory(gctx); return err })
	g.Go(func() (err error) { disks, err = c.source.Disks(gctx); return err })
	g.Go(func() (err error) { nics, err = c.source.Network(gctx); return err })
	g.Go(func() (err error) { procs, err = c.source.Processes(gctx); return err })

	if err := g.Wait(); err != nil {
		snap.Disk = []Disk{}
		snap.Network = []NetInterface{}
		snap.Processes = []Process{}
		snap.Error = err.Error()
		return snap
	}

	snap.CPUPercent = int(cpuPercent + 0.5)
	snap.Memory = mem
	snap.Disk = nonNil(disks)
	snap.Network = nonNil(nics)
	snap.Processes = topByCPU(procs, TopProcesses)
	return snap
}

func topByCPU(procs []Process, n int) []Process {
	sorted := append([]Process(nil), procs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CPU > sorted[j].CPU })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return nonNil(sorted)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
