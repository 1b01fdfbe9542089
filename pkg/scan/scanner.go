// Package scan walks an address space and collects the C string literals
// that are referenced from exactly one place.
package scan

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/symbundle/pkg/bundle"
	"github.com/grafana/symbundle/pkg/host"
	"github.com/grafana/symbundle/pkg/metrics"
)

// UnknownOwner stands in for the owner of a literal outside any function.
const UnknownOwner = "<unknown>"

const (
	reasonNotCString = "not_c_string"
	reasonNoXref     = "no_xref"
	reasonMultiXref  = "multi_xref"
)

// ScanHost is the subset of host primitives the scanner reads.
type ScanHost interface {
	host.AddressSpace
	host.StringReader
	host.XrefReader
	host.FunctionReader
}

type Stats struct {
	Visited       int
	NotCString    int
	NoXref        int
	MultiXref     int
	ExtractFailed int
	Emitted       int
}

type Scanner struct {
	host    ScanHost
	logger  log.Logger
	metrics *metrics.Metrics

	stats Stats
}

func New(h ScanHost, logger log.Logger, m *metrics.Metrics) *Scanner {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	return &Scanner{
		host:    h,
		logger:  logger,
		metrics: m,
	}
}

// Stats returns the counters of the last Scan.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// Scan visits every defined item in [min, max) and returns one record for
// each C string with exactly one inbound reference.
func (s *Scanner) Scan(min, max host.Address) *bundle.Bundle {
	s.stats = Stats{}
	res := bundle.New(bundle.Scanned)

	for ea := min; ea != host.BadAddress && ea < max; ea = s.host.NextHead(ea, max) {
		s.stats.Visited++
		s.metrics.ScannedItems.Inc()
		if r, ok := s.visit(ea); ok {
			res.Append(r)
			s.stats.Emitted++
			s.metrics.Records.WithLabelValues(bundle.Scanned.String()).Inc()
		}
	}

	level.Debug(s.logger).Log(
		"msg", "address space scanned",
		"min", min,
		"max", max,
		"visited", s.stats.Visited,
		"records", s.stats.Emitted,
	)
	return res
}

func (s *Scanner) visit(ea host.Address) (bundle.Record, bool) {
	if s.host.StringType(ea) != host.StrC {
		s.stats.NotCString++
		s.skip(reasonNotCString)
		return bundle.Record{}, false
	}

	owner := s.host.FunctionOffset(ea)
	if owner == "" {
		owner = UnknownOwner
	}

	text, err := s.host.StringContents(ea, host.StrC)
	if err != nil {
		s.stats.ExtractFailed++
		level.Debug(s.logger).Log("msg", "failed to extract string", "ea", ea, "err", err)
		text = ""
	}

	first := s.host.FirstXrefTo(ea)
	if first == host.BadAddress {
		s.stats.NoXref++
		s.skip(reasonNoXref)
		return bundle.Record{}, false
	}
	if s.host.NextXrefTo(ea, first) != host.BadAddress {
		s.stats.MultiXref++
		s.skip(reasonMultiXref)
		return bundle.Record{}, false
	}

	return bundle.ScannedRecord(text, owner, first), true
}

func (s *Scanner) skip(reason string) {
	s.metrics.SkippedStrings.WithLabelValues(reason).Inc()
}
