package perf

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"
)

func writeSys(t *testing.T, path, value string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(value+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newFakeSampler(t *testing.T, root string) *Sampler {
	t.Helper()
	s := New(Options{SysRoot: root, Interval: 2 * time.Second})
	s.memory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Used: 4 << 30, UsedPercent: 25}, nil
	}
	calls := 0
	s.hostCPU = func(_ context.Context, interval time.Duration, percpu bool) ([]float64, error) {
		if interval != 0 || percpu {
			t.Fatalf("host cpu sampled with interval=%s percpu=%v", interval, percpu)
		}
		calls++
		return []float64{float64(calls) * 10}, nil
	}
	s.loadAvg = func(context.Context) (*load.AvgStat, error) {
		return &load.AvgStat{Load1: 0.75, Load5: 0.5, Load15: 0.25}, nil
	}
	s.temps = func(context.Context) ([]sensors.TemperatureStat, error) {
		return []sensors.TemperatureStat{
			{SensorKey: "nvme_composite", Temperature: 40},
			{SensorKey: "k10temp_tctl", Temperature: 61.5},
			{SensorKey: "k10temp_tccd1", Temperature: 58},
			{SensorKey: "amdgpu_edge", Temperature: 47},
		}, nil
	}
	return s
}

func TestSampleHostFigures(t *testing.T) {
	root := t.TempDir()
	rapl := filepath.Join(root, "class", "powercap", "intel-rapl:0")
	writeSys(t, filepath.Join(rapl, "energy_uj"), "1000000")
	writeSys(t, filepath.Join(rapl, "max_energy_range_uj"), "262143328850")
	writeSys(t, filepath.Join(root, "class", "powercap", "intel-rapl:0:0", "energy_uj"), "5")
	writeSys(t, filepath.Join(root, "class", "drm", "card1", "device", "gpu_busy_percent"), "17")

	s := newFakeSampler(t, root)
	s.sleep = func(context.Context, time.Duration) error {
		writeSys(t, filepath.Join(rapl, "energy_uj"), "13000000")
		return nil
	}

	report, err := s.Sample(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if report.PackageWatts == nil || math.Abs(*report.PackageWatts-6) > 1e-9 {
		t.Fatalf("package watts = %v, want 6", report.PackageWatts)
	}
	if report.GPUBusyPercent == nil || *report.GPUBusyPercent != 17 {
		t.Fatalf("gpu busy = %v", report.GPUBusyPercent)
	}
	if report.CPUTempC == nil || *report.CPUTempC != 61.5 {
		t.Fatalf("cpu temp = %v", report.CPUTempC)
	}
	if report.GPUTempC == nil || *report.GPUTempC != 47 {
		t.Fatalf("gpu temp = %v", report.GPUTempC)
	}
	if report.MemUsedPercent == nil || *report.MemUsedPercent != 25 {
		t.Fatalf("mem percent = %v", report.MemUsedPercent)
	}
	if report.HostCPUPercent == nil || *report.HostCPUPercent != 20 {
		t.Fatalf("host cpu = %v, want the second (post-window) reading", report.HostCPUPercent)
	}
	if report.Load1 == nil || *report.Load1 != 0.75 {
		t.Fatalf("load1 = %v", report.Load1)
	}
}

func TestSampleMissingFiguresStayNil(t *testing.T) {
	s := newFakeSampler(t, t.TempDir())
	s.sleep = func(context.Context, time.Duration) error { return nil }
	s.temps = func(context.Context) ([]sensors.TemperatureStat, error) { return nil, errors.New("no hwmon") }
	s.memory = func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, errors.New("no meminfo") }
	s.hostCPU = func(context.Context, time.Duration, bool) ([]float64, error) { return nil, errors.New("no stat") }
	s.loadAvg = func(context.Context) (*load.AvgStat, error) { return nil, errors.New("no loadavg") }

	report, err := s.Sample(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if report.PackageWatts != nil || report.GPUBusyPercent != nil || report.CPUTempC != nil ||
		report.GPUTempC != nil || report.MemUsedPercent != nil || report.HostCPUPercent != nil || report.Load1 != nil {
		t.Fatalf("expected nil figures, got %+v", report)
	}
}

func TestEnergyWrapAround(t *testing.T) {
	before := energySample{microjoules: 900, maxRange: 1000}
	after := energySample{microjoules: 100}
	watts := after.wattsSince(before, time.Second)
	if watts == nil || math.Abs(*watts-0.0002) > 1e-12 {
		t.Fatalf("watts = %v", watts)
	}
	if got := after.wattsSince(energySample{microjoules: 900}, time.Second); got != nil {
		t.Fatalf("wrap without range should be unknown, got %v", *got)
	}
}

func TestSampleMeasuresOwnProcess(t *testing.T) {
	s := newFakeSampler(t, t.TempDir())
	s.sleep = func(context.Context, time.Duration) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}
	report, err := s.Sample(context.Background(), []Target{
		{Monitor: "self", PID: os.Getpid()},
		{Monitor: "gone", PID: 1 << 30},
	})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	self := report.Players[0]
	if self.Processes < 1 || self.RSSBytes == nil || *self.RSSBytes == 0 || self.CPUPercent == nil {
		t.Fatalf("unexpected self sample %+v", self)
	}
	if report.Players[1].Error == "" {
		t.Fatalf("missing process should report an error: %+v", report.Players[1])
	}
}

func TestSampleHonoursCancel(t *testing.T) {
	s := New(Options{SysRoot: t.TempDir(), Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Sample(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
