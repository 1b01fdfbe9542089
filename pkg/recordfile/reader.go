// Package recordfile reads the line-oriented record files that map string
// literals to symbol names.
//
// A record file is consumed one line at a time, each line being a single
// key/value pair of the form
//
//	    "<literal>": "<symbol>",
//
// The fields are cut out by position around the `": "` separator. Nothing
// is unescaped and nothing is validated: a line of a different shape yields
// a record with truncated or empty fields rather than an error.
package recordfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/grafana/symbundle/pkg/bundle"
	"github.com/grafana/symbundle/pkg/metrics"
)

const (
	separator = `": "`

	// literalOffset is the width of the indentation plus the opening quote.
	literalOffset = 5
	// symbolOffset skips the separator.
	symbolOffset = len(separator)
)

var ErrOpen = errors.New("cannot open record file")

type Reader struct {
	fs      afero.Fs
	logger  log.Logger
	metrics *metrics.Metrics
}

func NewReader(fs afero.Fs, logger log.Logger, m *metrics.Metrics) *Reader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	return &Reader{
		fs:      fs,
		logger:  logger,
		metrics: m,
	}
}

// Read opens path and returns one reference record per line.
func (r *Reader) Read(path string) (*bundle.Bundle, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	defer f.Close()

	b, err := r.ReadFrom(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	level.Debug(r.logger).Log("msg", "record file read", "path", path, "records", b.Len())
	return b, nil
}

// ReadFrom consumes rd until EOF.
func (r *Reader) ReadFrom(rd io.Reader) (*bundle.Bundle, error) {
	res := bundle.New(bundle.Reference)
	br := bufio.NewReader(rd)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			literal, symbol := ParseLine(line)
			res.Append(bundle.ReferenceRecord(literal, symbol))
			r.metrics.Records.WithLabelValues(bundle.Reference.String()).Inc()
		}
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// ParseLine cuts the literal and the symbol name out of a record line.
// The line may still carry its terminator.
func ParseLine(line string) (literal, symbol string) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	sep := strings.Index(line, separator)
	literal = substr(line, literalOffset, sep)

	end := len(line) - 1
	if strings.Contains(line, ",") {
		end = len(line) - 2
	}
	symbol = substr(line, sep+symbolOffset, end)
	return literal, symbol
}

// substr returns s[from:to] with clamped bounds. A to of -1 means the end of
// s, an empty range returns "".
func substr(s string, from, to int) string {
	if to == -1 || to > len(s) {
		to = len(s)
	}
	if from < 0 {
		from = 0
	}
	if from >= to {
		return ""
	}
	return s[from:to]
}
