package perf

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shirou/gopsutil/v4/sensors"

	"hyprwall/internal/logging"
)

// DefaultInterval is the measurement window used when none is configured.
const DefaultInterval = time.Second

// Target is a player to measure.
type Target struct {
	Monitor string
	PID     int
}

// PlayerSample is the cost of one player's process tree.
type PlayerSample struct {
	Monitor    string   `json:"monitor"`
	PID        int      `json:"pid"`
	Processes  int      `json:"processes"`
	CPUPercent *float64 `json:"cpu_percent"`
	RSSBytes   *uint64  `json:"rss_bytes"`
	Error      string   `json:"error,omitempty"`
}

// Report is one sampling window.
type Report struct {
	Interval       time.Duration  `json:"interval"`
	Players        []PlayerSample `json:"players"`
	HostCPUPercent *float64       `json:"host_cpu_percent"`
	Load1          *float64       `json:"load1"`
	MemUsedPercent *float64       `json:"mem_used_percent"`
	MemUsedBytes   *uint64        `json:"mem_used_bytes"`
	CPUTempC       *float64       `json:"cpu_temp_c"`
	GPUTempC       *float64       `json:"gpu_temp_c"`
	PackageWatts   *float64       `json:"package_watts"`
	GPUBusyPercent *int           `json:"gpu_busy_percent"`
}

// Options configures a Sampler.
type Options struct {
	// SysRoot is the sysfs mount, "/sys" by default.
	SysRoot  string
	Interval time.Duration
	Logger   *slog.Logger
}

// Sampler measures players and host figures.
type Sampler struct {
	sysRoot  string
	interval time.Duration
	logger   *slog.Logger

	temps   func(ctx context.Context) ([]sensors.TemperatureStat, error)
	memory  func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	hostCPU func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	loadAvg func(ctx context.Context) (*load.AvgStat, error)
	sleep   func(ctx context.Context, d time.Duration) error
}

// New builds a Sampler.
func New(opts Options) *Sampler {
	root := strings.TrimSpace(opts.SysRoot)
	if root == "" {
		root = "/sys"
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sampler{
		sysRoot:  root,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "perf"),
		temps:    sensors.TemperaturesWithContext,
		memory:   mem.VirtualMemoryWithContext,
		hostCPU:  cpu.PercentWithContext,
		loadAvg:  load.AvgWithContext,
		sleep:    sleepContext,
	}
}

// Sample measures targets over one interval. CPU percent and package power
// are deltas across the window.
func (s *Sampler) Sample(ctx context.Context, targets []Target) (Report, error) {
	report := Report{Interval: s.interval}

	trees := make([][]*process.Process, len(targets))
	report.Players = make([]PlayerSample, len(targets))
	for i, target := range targets {
		report.Players[i] = PlayerSample{Monitor: target.Monitor, PID: target.PID}
		tree, err := processTree(ctx, target.PID)
		if err != nil {
			report.Players[i].Error = err.Error()
			continue
		}
		trees[i] = tree
		for _, p := range tree {
			// Prime the per-process CPU counters for the delta below.
			_, _ = p.PercentWithContext(ctx, 0)
		}
	}
	// A zero interval reports the delta since the previous call.
	_, _ = s.hostCPU(ctx, 0, false)
	energyBefore, raplOK := readEnergy(s.sysRoot)

	if err := s.sleep(ctx, s.interval); err != nil {
		return Report{}, err
	}

	for i, tree := range trees {
		if tree == nil {
			continue
		}
		measurePlayer(ctx, &report.Players[i], tree)
	}
	if raplOK {
		if energyAfter, ok := readEnergy(s.sysRoot); ok {
			report.PackageWatts = energyAfter.wattsSince(energyBefore, s.interval)
		}
	}

	if pcts, err := s.hostCPU(ctx, 0, false); err == nil && len(pcts) > 0 {
		host := pcts[0]
		report.HostCPUPercent = &host
	} else if err != nil {
		s.logger.Debug("host cpu stats unavailable", logging.Error(err))
	}
	if avg, err := s.loadAvg(ctx); err == nil && avg != nil {
		load1 := avg.Load1
		report.Load1 = &load1
	} else if err != nil {
		s.logger.Debug("load average unavailable", logging.Error(err))
	}

	if vm, err := s.memory(ctx); err == nil && vm != nil {
		used := vm.UsedPercent
		bytes := vm.Used
		report.MemUsedPercent = &used
		report.MemUsedBytes = &bytes
	} else if err != nil {
		s.logger.Debug("memory stats unavailable", logging.Error(err))
	}

	temps, err := s.temps(ctx)
	if err != nil {
		var warnings *sensors.Warnings
		if !errors.As(err, &warnings) {
			s.logger.Debug("temperature sensors unavailable", logging.Error(err))
		}
	}
	report.CPUTempC, report.GPUTempC = pickTemperatures(temps)
	report.GPUBusyPercent = readGPUBusy(s.sysRoot)

	return report, nil
}

func processTree(ctx context.Context, pid int) ([]*process.Process, error) {
	root, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, err
	}
	tree := []*process.Process{root}
	for i := 0; i < len(tree); i++ {
		children, err := tree[i].ChildrenWithContext(ctx)
		if err != nil {
			continue
		}
		tree = append(tree, children...)
	}
	return tree, nil
}

func measurePlayer(ctx context.Context, sample *PlayerSample, tree []*process.Process) {
	var cpuTotal float64
	var rss uint64
	var cpuSeen, rssSeen bool
	alive := 0
	for _, p := range tree {
		counted := false
		if pct, err := p.PercentWithContext(ctx, 0); err == nil {
			cpuTotal += pct
			cpuSeen = true
			counted = true
		}
		if info, err := p.MemoryInfoWithContext(ctx); err == nil && info != nil {
			rss += info.RSS
			rssSeen = true
			counted = true
		}
		if counted {
			alive++
		}
	}
	sample.Processes = alive
	if cpuSeen {
		sample.CPUPercent = &cpuTotal
	}
	if rssSeen {
		sample.RSSBytes = &rss
	}
	if alive == 0 {
		sample.Error = "process exited during sampling"
	}
}

// pickTemperatures takes the hottest CPU package sensor and the first GPU
// edge sensor.
func pickTemperatures(temps []sensors.TemperatureStat) (*float64, *float64) {
	var cpuTemp, gpuTemp *float64
	sorted := append([]sensors.TemperatureStat(nil), temps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SensorKey < sorted[j].SensorKey })
	for _, t := range sorted {
		if t.Temperature <= 0 {
			continue
		}
		key := strings.ToLower(t.SensorKey)
		value := t.Temperature
		switch {
		case isCPUSensor(key):
			if cpuTemp == nil || value > *cpuTemp {
				cpuTemp = &value
			}
		case isGPUSensor(key):
			if gpuTemp == nil {
				gpuTemp = &value
			}
		}
	}
	return cpuTemp, gpuTemp
}

func isCPUSensor(key string) bool {
	return strings.HasPrefix(key, "k10temp") ||
		strings.HasPrefix(key, "zenpower") ||
		strings.HasPrefix(key, "coretemp_package") ||
		strings.HasPrefix(key, "cpu_thermal")
}

func isGPUSensor(key string) bool {
	return strings.HasPrefix(key, "amdgpu") || strings.HasPrefix(key, "nouveau") || strings.HasPrefix(key, "nvidia")
}

type energySample struct {
	microjoules uint64
	maxRange    uint64
}

// readEnergy reads the first RAPL package domain.
func readEnergy(sysRoot string) (energySample, bool) {
	matches, _ := filepath.Glob(filepath.Join(sysRoot, "class", "powercap", "intel-rapl:*"))
	sort.Strings(matches)
	for _, dir := range matches {
		if strings.Count(filepath.Base(dir), ":") != 1 {
			continue
		}
		value, ok := readUint(filepath.Join(dir, "energy_uj"))
		if !ok {
			continue
		}
		maxRange, _ := readUint(filepath.Join(dir, "max_energy_range_uj"))
		return energySample{microjoules: value, maxRange: maxRange}, true
	}
	return energySample{}, false
}

func (e energySample) wattsSince(before energySample, window time.Duration) *float64 {
	if window <= 0 {
		return nil
	}
	var delta uint64
	switch {
	case e.microjoules >= before.microjoules:
		delta = e.microjoules - before.microjoules
	case before.maxRange > 0:
		delta = before.maxRange - before.microjoules + e.microjoules
	default:
		return nil
	}
	watts := float64(delta) / 1e6 / window.Seconds()
	return &watts
}

func readGPUBusy(sysRoot string) *int {
	matches, _ := filepath.Glob(filepath.Join(sysRoot, "class", "drm", "card*", "device", "gpu_busy_percent"))
	sort.Strings(matches)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		value, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		return &value
	}
	return nil
}

func readUint(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	value, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
