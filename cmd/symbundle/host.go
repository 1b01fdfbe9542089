package main

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/ianlancetaylor/demangle"
	"github.com/pkg/errors"

	symctx "github.com/grafana/symbundle/pkg/context"
	"github.com/grafana/symbundle/pkg/host"
	"github.com/grafana/symbundle/pkg/host/elfhost"
	"github.com/grafana/symbundle/pkg/host/memdb"
)

const (
	demangleNone       = "none"
	demangleSimplified = "simplified"
	demangleTemplates  = "templates"
	demangleFull       = "full"
)

func demangleOptions(mode string) []demangle.Option {
	switch mode {
	case demangleSimplified:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams, demangle.NoTemplateParams}
	case demangleTemplates:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams}
	case demangleFull:
		return []demangle.Option{demangle.NoClones}
	}
	return nil
}

type hostParams struct {
	dbPath       string
	elfPath      string
	demangle     string
	minStringLen int
}

func addHostParams(cmd commander) *hostParams {
	var (
		params = &hostParams{}
	)
	cmd.Flag("db", "Path to a YAML analysis database.").Envar(envPrefix + "DB").StringVar(&params.dbPath)
	cmd.Flag("elf", "Path to an ELF executable to analyse instead of a database.").Envar(envPrefix + "ELF").StringVar(&params.elfPath)
	addELFParams(cmd, params)
	return params
}

func addELFParams(cmd commander, params *hostParams) {
	cmd.Flag("demangle", "How to demangle C++ and Rust function names read from the ELF symbol tables.").Default(demangleNone).EnumVar(&params.demangle, demangleNone, demangleSimplified, demangleTemplates, demangleFull)
	cmd.Flag("min-string-length", "Shortest C string kept when reading an ELF executable.").Default("4").IntVar(&params.minStringLen)
}

// openHost loads the database named by the params. Exactly one of --db and
// --elf must be given.
func openHost(ctx context.Context, params *hostParams) (*memdb.Database, error) {
	switch {
	case params.dbPath != "" && params.elfPath != "":
		return nil, errors.New("--db and --elf are mutually exclusive")
	case params.dbPath != "":
		db, err := memdb.Load(symctx.Fs(ctx), params.dbPath)
		if err != nil {
			return nil, err
		}
		logLoaded(ctx, params.dbPath, db)
		return db, nil
	case params.elfPath != "":
		db, err := loadELF(ctx, params.elfPath, params)
		if err != nil {
			return nil, err
		}
		logLoaded(ctx, params.elfPath, db)
		return db, nil
	default:
		return nil, errors.New("one of --db or --elf is required")
	}
}

func loadELF(ctx context.Context, path string, params *hostParams) (*memdb.Database, error) {
	f, err := symctx.Fs(ctx).Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open executable")
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		level.Debug(symctx.Logger(ctx)).Log("msg", "reading executable", "path", path, "size", humanize.Bytes(uint64(fi.Size())))
	}

	opts := []elfhost.Option{
		elfhost.WithLogger(symctx.Logger(ctx)),
		elfhost.WithMinStringLength(params.minStringLen),
	}
	if params.demangle != "" && params.demangle != demangleNone {
		opts = append(opts, elfhost.WithDemangle(demangleOptions(params.demangle)...))
	}
	return elfhost.FromReader(f, opts...)
}

func logLoaded(ctx context.Context, path string, db *memdb.Database) {
	level.Info(symctx.Logger(ctx)).Log(
		"msg", "database loaded",
		"path", path,
		"items", humanize.Comma(int64(len(db.Items))),
		"functions", humanize.Comma(int64(len(db.Functions))),
		"xrefs", humanize.Comma(int64(len(db.Xrefs))),
	)
}

type addressRange struct {
	min string
	max string
}

func addAddressRangeParams(cmd commander) *addressRange {
	var (
		params = &addressRange{}
	)
	cmd.Flag("min", "First address to scan. Defaults to the lowest address of the database.").StringVar(&params.min)
	cmd.Flag("max", "Address at which the scan stops. Defaults to the end of the database.").StringVar(&params.max)
	return params
}

func (r *addressRange) resolve(h host.AddressSpace) (min, max host.Address, err error) {
	min, max = h.MinAddress(), h.MaxAddress()
	if r.min != "" {
		if min, err = host.ParseAddress(r.min); err != nil {
			return 0, 0, errors.Wrap(err, "--min")
		}
	}
	if r.max != "" {
		if max, err = host.ParseAddress(r.max); err != nil {
			return 0, 0, errors.Wrap(err, "--max")
		}
	}
	return min, max, nil
}
