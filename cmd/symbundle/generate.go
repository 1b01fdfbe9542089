package main

import (
	"context"
	"path/filepath"

	"github.com/go-kit/log/level"

	symctx "github.com/grafana/symbundle/pkg/context"
	"github.com/grafana/symbundle/pkg/generate"
)

type generateParams struct {
	files []string
	out   string
}

func addGenerateParams(cmd commander) *generateParams {
	var (
		params = &generateParams{}
	)
	cmd.Flag("out", "Record file to write.").Default(filepath.Join(generate.DefaultDir, generate.DefaultFile)).StringVar(&params.out)
	cmd.Arg("files", "C source files to read.").Required().StringsVar(&params.files)
	return params
}

func runGenerate(ctx context.Context, params *generateParams) error {
	g := generate.New(symctx.Fs(ctx), symctx.Logger(ctx))
	m, err := g.Build(params.files)
	if err != nil {
		return err
	}
	if err := g.WriteFile(params.out, m); err != nil {
		return err
	}
	level.Info(symctx.Logger(ctx)).Log("msg", "record file written", "path", params.out, "records", len(m))
	return nil
}
