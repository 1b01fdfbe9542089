package main

import (
	"context"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"

	symctx "github.com/grafana/symbundle/pkg/context"
	"github.com/grafana/symbundle/pkg/match"
	"github.com/grafana/symbundle/pkg/recordfile"
	"github.com/grafana/symbundle/pkg/scan"
)

type applyParams struct {
	*hostParams
	*addressRange
	records string
	dryRun  bool
	save    string
}

func addApplyParams(cmd commander) *applyParams {
	var (
		params = &applyParams{
			hostParams:   addHostParams(cmd),
			addressRange: addAddressRangeParams(cmd),
		}
	)
	cmd.Flag("records", "Record file mapping literals to function names. Asked for on a terminal when missing.").Envar(envPrefix + "RECORDS").StringVar(&params.records)
	cmd.Flag("dry-run", "Report the renames without applying them.").Default("false").BoolVar(&params.dryRun)
	cmd.Flag("save", "Where to store the renamed database. Defaults to --db.").StringVar(&params.save)
	return params
}

func runApply(ctx context.Context, params *applyParams) error {
	var (
		logger = symctx.Logger(ctx)
		m      = newMetrics(ctx)
		start  = time.Now()
	)
	level.Info(logger).Log("msg", "starting")

	db, err := openHost(ctx, params.hostParams)
	if err != nil {
		return err
	}
	min, max, err := params.addressRange.resolve(db)
	if err != nil {
		return err
	}

	s := scan.New(db, logger, m)
	scanned := s.Scan(min, max)
	logScanStats(ctx, s.Stats())

	path := params.records
	if path == "" {
		if !stdinIsTerminal() {
			return errNoRecordFile
		}
		if path, err = promptRecordFile(os.Stdin, os.Stderr); err != nil {
			return err
		}
	}
	reference, err := recordfile.NewReader(symctx.Fs(ctx), logger, m).Read(path)
	if err != nil {
		return err
	}

	var mh match.MatchHost = db
	if params.dryRun {
		mh = match.DryRun(db)
	}
	res := match.New(mh, logger, m).Apply(scanned, reference)
	if err := outputRenames(ctx, res); err != nil {
		return err
	}

	level.Info(logger).Log(
		"msg", "done",
		"scanned", humanize.Comma(int64(scanned.Len())),
		"reference", humanize.Comma(int64(reference.Len())),
		"matches", humanize.Comma(int64(res.Matches)),
		"failed", len(res.Failed()),
		"duration", time.Since(start),
	)

	if params.dryRun {
		return nil
	}
	target := params.save
	if target == "" {
		target = params.dbPath
	}
	if target == "" {
		level.Warn(logger).Log("msg", "renames are not stored, use --save")
		return nil
	}
	if err := db.Save(symctx.Fs(ctx), target); err != nil {
		return err
	}
	level.Info(logger).Log("msg", "database saved", "path", target, "renames", len(db.Renames))
	return nil
}
