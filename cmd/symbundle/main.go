package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
	"github.com/spf13/afero"
	"gopkg.in/alecthomas/kingpin.v2"

	symctx "github.com/grafana/symbundle/pkg/context"
	"github.com/grafana/symbundle/pkg/metrics"
	"github.com/grafana/symbundle/pkg/recordfile"
)

const envPrefix = "SYMBUNDLE_"

var cfg struct {
	verbose         bool
	output          string
	metricsTextfile string
}

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(consoleOutput)
)

type commander interface {
	Flag(name, help string) *kingpin.FlagClause
	Arg(name, help string) *kingpin.ArgClause
}

func main() {
	app := kingpin.New(filepath.Base(os.Args[0]), "Rename functions of a binary after the unique string literals they use.").UsageWriter(os.Stdout)
	app.Version(version.Print("symbundle"))
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Default("false").BoolVar(&cfg.verbose)
	app.Flag("output", "How to print results.").Default(outputConsole).Envar(envPrefix+"OUTPUT").EnumVar(&cfg.output, outputConsole, outputJSON)
	app.Flag("metrics.textfile", "Write run metrics in the Prometheus text format to this file.").Envar(envPrefix + "METRICS_TEXTFILE").StringVar(&cfg.metricsTextfile)

	scanCmd := app.Command("scan", "Collect the C strings referenced from exactly one place.")
	scanParams := addScanParams(scanCmd)

	readCmd := app.Command("read", "Read a record file.")
	readParams := addReadParams(readCmd)

	applyCmd := app.Command("apply", "Scan, read a record file and rename the matching functions.")
	applyParams := addApplyParams(applyCmd)

	generateCmd := app.Command("generate", "Build a record file from C sources.")
	generateParams := addGenerateParams(generateCmd)

	importELFCmd := app.Command("import-elf", "Convert an ELF executable into a YAML analysis database.")
	importELFParams := addImportELFParams(importELFCmd)

	// parse command line arguments
	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// enable verbose logging if requested
	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	reg := prometheus.NewRegistry()
	ctx := symctx.WithLogger(context.Background(), logger)
	ctx = symctx.WithOutput(ctx, os.Stdout)
	ctx = symctx.WithRegistry(ctx, reg)
	ctx = symctx.WithFs(ctx, afero.NewOsFs())

	var err error
	switch parsedCmd {
	case scanCmd.FullCommand():
		err = runScan(ctx, scanParams)
	case readCmd.FullCommand():
		err = runRead(ctx, readParams)
	case applyCmd.FullCommand():
		err = runApply(ctx, applyParams)
	case generateCmd.FullCommand():
		err = runGenerate(ctx, generateParams)
	case importELFCmd.FullCommand():
		err = runImportELF(ctx, importELFParams)
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
		os.Exit(1)
	}

	if err == nil && cfg.metricsTextfile != "" {
		err = errors.Wrap(prometheus.WriteToTextfile(cfg.metricsTextfile, reg), "write metrics")
	}
	os.Exit(checkError(err))
}

func checkError(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, recordfile.ErrOpen):
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return 1
}

func newMetrics(ctx context.Context) *metrics.Metrics {
	return metrics.NewMetrics(symctx.Registry(ctx))
}
