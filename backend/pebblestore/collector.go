package pebblestore

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

type pebbleMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(m *pebble.Metrics) float64
}

// PebbleCollector reports compaction, memtable and WAL figures of one
// store's database.
type PebbleCollector struct {
	db      *pebble.DB
	metrics []pebbleMetric
}

func NewPebbleCollector(db *pebble.DB, storeID string) *PebbleCollector {
	labels := prometheus.Labels{"store": storeID}
	pc := &PebbleCollector{db: db}
	add := func(name, help string, kind prometheus.ValueType, value func(m *pebble.Metrics) float64) {
		pc.metrics = append(pc.metrics, pebbleMetric{
			desc:  prometheus.NewDesc("orchestra_pebble_"+name, help, nil, labels),
			kind:  kind,
			value: value,
		})
	}

	add("compaction_count_total", "Compactions performed",
		prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.Count) })
	add("compaction_estimated_debt_bytes", "Bytes to compact before the LSM is stable",
		prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.EstimatedDebt) })
	add("compaction_in_progress_bytes", "Bytes under compaction right now",
		prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.InProgressBytes) })
	add("compaction_marked_files", "Files marked for compaction",
		prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.MarkedFiles) })

	add("memtable_size_bytes", "Memtable size",
		prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.MemTable.Size) })
	add("memtable_count", "Live memtables",
		prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.MemTable.Count) })
	add("memtable_zombie_size_bytes", "Zombie memtable size",
		prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.MemTable.ZombieSize) })

	add("wal_files", "Live WAL files",
		prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.Files) })
	add("wal_size_bytes", "Live WAL data",
		prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.Size) })
	add("wal_bytes_in_total", "Logical bytes written to the WAL",
		prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.BytesIn) })
	add("wal_bytes_written_total", "Physical bytes written to the WAL",
		prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.BytesWritten) })
	return pc
}

func (pc *PebbleCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range pc.metrics {
		ch <- m.desc
	}
}

func (pc *PebbleCollector) Collect(ch chan<- prometheus.Metric) {
	snap := pc.db.Metrics()
	for _, m := range pc.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(snap))
	}
}
