package main

import (
	"context"

	"github.com/go-kit/log/level"

	symctx "github.com/grafana/symbundle/pkg/context"
	"github.com/grafana/symbundle/pkg/scan"
)

type scanParams struct {
	*hostParams
	*addressRange
}

func addScanParams(cmd commander) *scanParams {
	return &scanParams{
		hostParams:   addHostParams(cmd),
		addressRange: addAddressRangeParams(cmd),
	}
}

func runScan(ctx context.Context, params *scanParams) error {
	db, err := openHost(ctx, params.hostParams)
	if err != nil {
		return err
	}
	min, max, err := params.addressRange.resolve(db)
	if err != nil {
		return err
	}

	s := scan.New(db, symctx.Logger(ctx), newMetrics(ctx))
	b := s.Scan(min, max)
	logScanStats(ctx, s.Stats())
	return outputBundle(ctx, b)
}

func logScanStats(ctx context.Context, st scan.Stats) {
	level.Info(symctx.Logger(ctx)).Log(
		"msg", "scan done",
		"visited", st.Visited,
		"emitted", st.Emitted,
		"not_c_string", st.NotCString,
		"no_xref", st.NoXref,
		"multi_xref", st.MultiXref,
		"extract_failed", st.ExtractFailed,
	)
}
