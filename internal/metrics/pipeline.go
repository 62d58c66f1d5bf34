// Package metrics provides Prometheus gauges for the running pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "picambench",
		Subsystem: "pipeline",
		Name:      "fps",
		Help:      "Frame rate reported by the preview consumer",
	}, []string{"source"})

	pipelineBitrate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "picambench",
		Subsystem: "pipeline",
		Name:      "bitrate_kbps",
		Help:      "Bitrate reported by the preview consumer in kbit/s",
	}, []string{"source"})

	pipelineCPU = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "picambench",
		Subsystem: "pipeline",
		Name:      "cpu_percent",
		Help:      "Combined CPU usage of producer and consumer",
	}, []string{"source"})

	pipelineMemory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "picambench",
		Subsystem: "pipeline",
		Name:      "memory_mb",
		Help:      "Combined resident memory of producer and consumer in MB",
	}, []string{"source"})

	// Local cache for status API access.
	pipelineCache   = make(map[string]*PipelineMetrics)
	pipelineCacheMu sync.RWMutex
)

// PipelineMetrics holds current metric values for a source.
type PipelineMetrics struct {
	FPS         float64
	BitrateKbps float64
	CPUPercent  float64
	MemoryMB    float64
}

// SetPipelineMetrics sets all gauges for a source.
func SetPipelineMetrics(source string, m PipelineMetrics) {
	pipelineFPS.WithLabelValues(source).Set(m.FPS)
	pipelineBitrate.WithLabelValues(source).Set(m.BitrateKbps)
	pipelineCPU.WithLabelValues(source).Set(m.CPUPercent)
	pipelineMemory.WithLabelValues(source).Set(m.MemoryMB)

	pipelineCacheMu.Lock()
	defer pipelineCacheMu.Unlock()
	dup := m
	pipelineCache[source] = &dup
}

// DeletePipelineMetrics removes all metrics for a source.
func DeletePipelineMetrics(source string) {
	pipelineFPS.DeleteLabelValues(source)
	pipelineBitrate.DeleteLabelValues(source)
	pipelineCPU.DeleteLabelValues(source)
	pipelineMemory.DeleteLabelValues(source)

	pipelineCacheMu.Lock()
	delete(pipelineCache, source)
	pipelineCacheMu.Unlock()
}

// GetPipelineMetrics returns current metric values for a source.
func GetPipelineMetrics(source string) *PipelineMetrics {
	pipelineCacheMu.RLock()
	defer pipelineCacheMu.RUnlock()
	if m, ok := pipelineCache[source]; ok {
		dup := *m
		return &dup
	}
	return nil
}
