// Package match joins a scanned bundle with a reference bundle on literal
// equality and renames the functions owning the matched literals.
package match

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/symbundle/pkg/bundle"
	"github.com/grafana/symbundle/pkg/host"
	"github.com/grafana/symbundle/pkg/metrics"
)

// MatchHost is the subset of host primitives the engine needs.
type MatchHost interface {
	host.FunctionReader
	host.Namer
}

// Rename is one rename issued to the host.
type Rename struct {
	Literal string
	From    string
	To      string
	Address host.Address
	Err     error
}

type Result struct {
	Matches int
	Renames []Rename
}

// Failed returns the renames the host rejected.
func (r Result) Failed() []Rename {
	var res []Rename
	for _, rn := range r.Renames {
		if rn.Err != nil {
			res = append(res, rn)
		}
	}
	return res
}

type Engine struct {
	host    MatchHost
	logger  log.Logger
	metrics *metrics.Metrics
}

func New(h MatchHost, logger log.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	return &Engine{
		host:    h,
		logger:  logger,
		metrics: m,
	}
}

// Apply compares every scanned record with every reference record and
// issues a rename for each pair with equal literals. Scanned order is the
// outer loop, reference order the inner one; renames are issued in that
// order and are neither deduplicated nor checked for conflicts.
func (e *Engine) Apply(scanned, reference *bundle.Bundle) Result {
	var res Result
	for i := 0; i < scanned.Len(); i++ {
		s := scanned.At(i)
		for j := 0; j < reference.Len(); j++ {
			ref := reference.At(j)
			if s.Literal != ref.Literal {
				continue
			}
			res.Matches++
			e.metrics.Matches.Inc()
			res.Renames = append(res.Renames, e.rename(s, ref))
		}
	}
	return res
}

func (e *Engine) rename(s, ref bundle.Record) Rename {
	owner := e.host.FunctionName(s.Xref)
	ea := e.host.NameAddress(owner)

	rn := Rename{
		Literal: s.Literal,
		From:    owner,
		To:      ref.Symbol,
		Address: ea,
	}
	rn.Err = e.host.SetName(ea, ref.Symbol)
	e.metrics.Renames.Inc()
	if rn.Err != nil {
		e.metrics.RenameErrors.Inc()
		level.Warn(e.logger).Log("msg", "rename rejected", "from", owner, "to", ref.Symbol, "ea", ea, "err", rn.Err)
		return rn
	}
	level.Debug(e.logger).Log("msg", "renamed", "from", owner, "to", ref.Symbol, "ea", ea)
	return rn
}
