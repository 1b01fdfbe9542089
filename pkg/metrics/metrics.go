package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	ScannedItems   prometheus.Counter
	SkippedStrings *prometheus.CounterVec
	Records        *prometheus.CounterVec
	Matches        prometheus.Counter
	Renames        prometheus.Counter
	RenameErrors   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScannedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "symbundle_scan_items_total",
			Help: "Total number of defined items visited by the address space scanner",
		}),
		SkippedStrings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "symbundle_scan_skipped_total",
			Help: "Total number of visited items that did not produce a record",
		}, []string{"reason"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "symbundle_records_total",
			Help: "Total number of records appended to a bundle",
		}, []string{"bundle"}),
		Matches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "symbundle_matches_total",
			Help: "Total number of scanned/reference record pairs with equal literals",
		}),
		Renames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "symbundle_renames_total",
			Help: "Total number of renames issued to the host",
		}),
		RenameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "symbundle_rename_errors_total",
			Help: "Total number of renames rejected by the host",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ScannedItems,
			m.SkippedStrings,
			m.Records,
			m.Matches,
			m.Renames,
			m.RenameErrors,
		)
	}

	return m
}
