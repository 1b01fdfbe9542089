// Package generate produces record files from the string/function pairs
// found in C sources.
package generate

import (
	"bytes"
	"io"
	"path/filepath"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/grafana/symbundle/pkg/csource"
)

const (
	DefaultDir  = "out"
	DefaultFile = "bundle.json"
)

const indent = "    "

var json = jsoniter.Config{
	EscapeHTML: false,
}.Froze()

// Mapping maps a literal to the only function using it.
type Mapping map[string]string

// Unique keeps the pairs whose literal occurs exactly once across all pairs.
func Unique(pairs []csource.Pair) Mapping {
	counts := lo.CountValues(lo.Map(pairs, func(p csource.Pair, _ int) string { return p.Literal }))
	res := make(Mapping)
	for _, p := range pairs {
		if counts[p.Literal] == 1 {
			res[p.Literal] = p.Function
		}
	}
	return res
}

// Marshal renders m as a JSON object with sorted keys and one key/value
// pair per line, indented by four spaces. Escaped backslashes are collapsed
// so the keys carry the literals as they were written in the source.
func Marshal(m Mapping) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}\n"), nil
	}
	keys := lo.Keys(m)
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, k := range keys {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.WriteString(indent)
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return bytes.ReplaceAll(buf.Bytes(), []byte(`\\`), []byte(`\`)), nil
}

func Write(w io.Writer, m Mapping) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

type Generator struct {
	fs     afero.Fs
	logger log.Logger
}

func New(fs afero.Fs, logger log.Logger) *Generator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Generator{fs: fs, logger: logger}
}

// Build extracts the pairs of every file and keeps the unique literals.
func (g *Generator) Build(paths []string) (Mapping, error) {
	if len(paths) == 0 {
		return nil, errors.New("no source files specified")
	}
	var pairs []csource.Pair
	for _, path := range paths {
		p, err := csource.ExtractFile(g.fs, path)
		if err != nil {
			return nil, err
		}
		if len(p) == 0 {
			level.Warn(g.logger).Log("msg", "no strings found", "path", path)
		}
		level.Debug(g.logger).Log("msg", "source processed", "path", path, "pairs", len(p))
		pairs = append(pairs, p...)
	}
	m := Unique(pairs)
	if len(m) == 0 {
		level.Warn(g.logger).Log("msg", "no unique strings found")
	}
	return m, nil
}

// WriteFile stores m at path, creating its directory.
func (g *Generator) WriteFile(path string, m Mapping) error {
	if err := g.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create bundle directory")
	}
	data, err := Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal bundle")
	}
	if err := afero.WriteFile(g.fs, path, data, 0o644); err != nil {
		return errors.Wrap(err, "write bundle")
	}
	level.Info(g.logger).Log("msg", "bundle written", "path", path, "entries", len(m))
	return nil
}
