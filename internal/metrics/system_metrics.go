package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var (
	SystemCPUUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "system_cpu_usage_percent",
			Help: "Current CPU usage percentage",
		},
	)

	SystemMemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_memory_usage_bytes",
			Help: "Current memory usage in bytes",
		},
		[]string{"type"},
	)

	GoMemstatsAllocBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_go_memstats_alloc_bytes",
			Help: "Number of bytes allocated and still in use",
		},
		[]string{"service"},
	)

	GoMemstatsSysBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_go_memstats_sys_bytes",
			Help: "Number of bytes obtained from system",
		},
		[]string{"service"},
	)

	GoGoroutines = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_go_goroutines",
			Help: "Number of goroutines that currently exist",
		},
		[]string{"service"},
	)
)

// UpdateSystemMetrics samples host CPU/memory and Go runtime stats
func UpdateSystemMetrics(serviceName string) {
	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		SystemCPUUsage.Set(percentages[0])
	} else if err != nil {
		log.Debug().Err(err).Msg("Failed to sample CPU usage")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		SystemMemoryUsage.WithLabelValues("used").Set(float64(vm.Used))
		SystemMemoryUsage.WithLabelValues("available").Set(float64(vm.Available))
	} else {
		log.Debug().Err(err).Msg("Failed to sample memory usage")
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	GoMemstatsAllocBytes.WithLabelValues(serviceName).Set(float64(m.Alloc))
	GoMemstatsSysBytes.WithLabelValues(serviceName).Set(float64(m.Sys))
	GoGoroutines.WithLabelValues(serviceName).Set(float64(runtime.NumGoroutine()))
}

// StartSystemMetricsCollection starts a goroutine to collect system metrics
func StartSystemMetricsCollection(serviceName string) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			UpdateSystemMetrics(serviceName)
		}
	}()
}
