package main

import (
	"context"

	symctx "github.com/grafana/symbundle/pkg/context"
	"github.com/grafana/symbundle/pkg/recordfile"
)

type readParams struct {
	path string
}

func addReadParams(cmd commander) *readParams {
	var (
		params = &readParams{}
	)
	cmd.Arg("file", "Record file to read.").Required().StringVar(&params.path)
	return params
}

func runRead(ctx context.Context, params *readParams) error {
	r := recordfile.NewReader(symctx.Fs(ctx), symctx.Logger(ctx), newMetrics(ctx))
	b, err := r.Read(params.path)
	if err != nil {
		return err
	}
	return outputBundle(ctx, b)
}
