// Package diagnostics inspects the host and the configured collaborators so
// problems surface before a conversation starts.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo is a best-effort snapshot of the machine. Fields that could not
// be read stay zero.
type HostInfo struct {
	OS         string `json:"os" yaml:"os"`
	Arch       string `json:"arch" yaml:"arch"`
	CPUModel   string `json:"cpu_model" yaml:"cpu_model"`
	CPUCores   int    `json:"cpu_cores" yaml:"cpu_cores"`
	CPUThreads int    `json:"cpu_threads" yaml:"cpu_threads"`

	MemTotalMB     float64 `json:"mem_total_mb" yaml:"mem_total_mb"`
	MemAvailableMB float64 `json:"mem_available_mb" yaml:"mem_available_mb"`
	MemPercent     float64 `json:"mem_percent" yaml:"mem_percent"`

	DiskPath    string  `json:"disk_path" yaml:"disk_path"`
	DiskTotalGB float64 `json:"disk_total_gb" yaml:"disk_total_gb"`
	DiskFreeGB  float64 `json:"disk_free_gb" yaml:"disk_free_gb"`
	DiskPercent float64 `json:"disk_percent" yaml:"disk_percent"`

	Load1  float64 `json:"load_1,omitempty" yaml:"load_1,omitempty"`
	Load5  float64 `json:"load_5,omitempty" yaml:"load_5,omitempty"`
	Load15 float64 `json:"load_15,omitempty" yaml:"load_15,omitempty"`

	GPUs []string `json:"gpus,omitempty" yaml:"gpus,omitempty"`
}

// CollectHost reads CPU, memory, load and GPU details plus disk usage of the
// filesystem holding diskPath. An empty diskPath means the root filesystem.
func CollectHost(ctx context.Context, diskPath string) HostInfo {
	info := HostInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		info.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.CPUCores = n
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUThreads = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemTotalMB = toMB(vm.Total)
		info.MemAvailableMB = toMB(vm.Available)
		info.MemPercent = vm.UsedPercent
	}

	info.DiskPath = existingDir(diskPath)
	if usage, err := disk.UsageWithContext(ctx, info.DiskPath); err == nil {
		info.DiskTotalGB = toGB(usage.Total)
		info.DiskFreeGB = toGB(usage.Free)
		info.DiskPercent = usage.UsedPercent
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		info.Load1, info.Load5, info.Load15 = avg.Load1, avg.Load5, avg.Load15
	}

	info.GPUs = gpuNames()
	return info
}

// gpuNames lists graphics cards known to the PCI database.
func gpuNames() []string {
	gpu, err := ghw.GPU()
	if err != nil || gpu == nil {
		return nil
	}
	names := make([]string, 0, len(gpu.GraphicsCards))
	for _, card := range gpu.GraphicsCards {
		name := ""
		if d := card.DeviceInfo; d != nil {
			switch {
			case d.Vendor != nil && d.Product != nil:
				name = d.Vendor.Name + " " + d.Product.Name
			case d.Product != nil:
				name = d.Product.Name
			case d.Vendor != nil:
				name = d.Vendor.Name
			}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("GPU %d", card.Index)
		}
		names = append(names, name)
	}
	return names
}

// existingDir walks up from path to the nearest directory that exists.
func existingDir(path string) string {
	if path == "" {
		return rootPath()
	}
	for {
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return rootPath()
		}
		path = parent
	}
}

func rootPath() string {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return drive + `\`
	}
	return "/"
}

func toMB(b uint64) float64 { return float64(b) / 1024 / 1024 }
func toGB(b uint64) float64 { return float64(b) / 1024 / 1024 / 1024 }
