package main

import (
	"context"

	"github.com/go-kit/log/level"

	symctx "github.com/grafana/symbundle/pkg/context"
)

type importELFParams struct {
	*hostParams
	out string
}

func addImportELFParams(cmd commander) *importELFParams {
	var (
		params = &importELFParams{hostParams: &hostParams{}}
	)
	addELFParams(cmd, params.hostParams)
	cmd.Flag("out", "Database file to write.").Required().StringVar(&params.out)
	cmd.Arg("binary", "ELF executable to import.").Required().StringVar(&params.elfPath)
	return params
}

func runImportELF(ctx context.Context, params *importELFParams) error {
	db, err := openHost(ctx, params.hostParams)
	if err != nil {
		return err
	}
	if err := db.Save(symctx.Fs(ctx), params.out); err != nil {
		return err
	}
	level.Info(symctx.Logger(ctx)).Log("msg", "database written", "path", params.out)
	return nil
}
