// Package benchmark - Functionality for running benchmarks.
package benchmark

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario        Scenario      `json:"scenario"`
	Timestamp       time.Time     `json:"timestamp"`
	TotalDuration   time.Duration `json:"total_duration"`
	Latency         LatencyStats  `json:"latency"`
	FramesPerSecond float64       `json:"frames_per_second"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
	KeypointCount   int           `json:"keypoint_count"`
	MeanKeypoints   float64       `json:"mean_keypoints"`
	ErrorRate       float64       `json:"error_rate"`
}

// LatencyStats summarizes per image detection latency.
type LatencyStats struct {
	Mean time.Duration `json:"mean"`
	P50  time.Duration `json:"p50"`
	P95  time.Duration `json:"p95"`
	Max  time.Duration `json:"max"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// latencyStats computes the summary of samples. samples is sorted in place.
func latencyStats(samples []time.Duration) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	x := make([]float64, len(samples))
	for i, d := range samples {
		x[i] = float64(d)
	}
	return LatencyStats{
		Mean: time.Duration(stat.Mean(x, nil)),
		P50:  time.Duration(stat.Quantile(0.5, stat.Empirical, x, nil)),
		P95:  time.Duration(stat.Quantile(0.95, stat.Empirical, x, nil)),
		Max:  samples[len(samples)-1],
	}
}
