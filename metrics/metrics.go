// Package metrics defines the Prometheus collectors updated by the store,
// mapper and term dictionary packages.
//
// Collectors are registered on Registry rather than the default registerer,
// so an embedding program decides whether and where to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector below.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	StoreBytesRead = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segstore_store_bytes_read_total",
			Help: "Bytes read from store files by backend.",
		},
		[]string{"backend"},
	)
	StoreBytesWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segstore_store_bytes_written_total",
			Help: "Bytes written to store files by backend.",
		},
		[]string{"backend"},
	)
	StoreOpenFiles = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "segstore_store_open_files",
			Help: "Physical file handles currently open by backend.",
		},
		[]string{"backend"},
	)
	LockObtains = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segstore_lock_obtain_total",
			Help: "Lock obtain attempts by result (obtained, timeout, error).",
		},
		[]string{"result"},
	)
	MapperCompiles = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "segstore_mapper_compile_total",
			Help: "Multi-pattern mapper DFA compilations.",
		},
	)
	MapperCompileSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "segstore_mapper_compile_seconds",
			Help:    "Multi-pattern mapper DFA compilation latency in seconds.",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		},
	)
	TermSeeks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segstore_term_seek_total",
			Help: "Term dictionary seeks by kind (index, scan).",
		},
		[]string{"kind"},
	)
)

// Backend label values.
const (
	BackendFS       = "fs"
	BackendRAM      = "ram"
	BackendCompound = "compound"
)
