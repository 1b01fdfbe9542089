// Package elfhost builds an analysis database from an ELF executable.
//
// Functions come from the symbol tables, C strings from the read-only data
// sections and references from a linear disassembly of every function body.
package elfhost

import (
	"debug/elf"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/ianlancetaylor/demangle"
	"github.com/pkg/errors"

	"github.com/grafana/symbundle/pkg/host"
	"github.com/grafana/symbundle/pkg/host/memdb"
)

var ErrUnsupportedArch = errors.New("unsupported architecture")

// Load opens the executable at path and builds its database.
func Load(path string, opts ...Option) (*memdb.Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open executable: %w", err)
	}
	defer f.Close()
	return FromReader(f, opts...)
}

// FromReader builds the database of the ELF file read from r.
func FromReader(r io.ReaderAt, opts ...Option) (*memdb.Database, error) {
	o := options{
		minStringLen: 1,
		logger:       log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse elf")
	}
	defer f.Close()

	dis, err := disassemblerFor(f.Machine)
	if err != nil {
		return nil, err
	}

	functions, err := readFunctions(f, &o)
	if err != nil {
		return nil, err
	}
	strs, err := readStrings(f, &o)
	if err != nil {
		return nil, err
	}
	xrefs, err := findXrefs(f, functions, strs, dis)
	if err != nil {
		return nil, err
	}

	items := make([]memdb.Item, 0, len(functions)+len(strs))
	for _, fn := range functions {
		items = append(items, memdb.Item{
			Address: fn.Start,
			Size:    uint64(fn.End - fn.Start),
			Kind:    memdb.KindCode,
		})
	}
	items = append(items, strs...)

	level.Debug(o.logger).Log(
		"msg", "elf loaded",
		"machine", f.Machine,
		"functions", len(functions),
		"strings", len(strs),
		"xrefs", len(xrefs),
	)
	return memdb.New(items, functions, xrefs)
}

func readFunctions(f *elf.File, o *options) ([]memdb.Function, error) {
	symbols, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, errors.Wrap(err, "read .symtab")
	}
	dynsym, err := f.DynamicSymbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, errors.Wrap(err, "read .dynsym")
	}
	symbols = append(symbols, dynsym...)

	var res []memdb.Function
	for _, s := range symbols {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Size == 0 || s.Value == 0 || s.Section == elf.SHN_UNDEF {
			continue
		}
		fn := memdb.Function{
			Name:  s.Name,
			Start: host.Address(s.Value),
			End:   host.Address(s.Value + s.Size),
		}
		if codeSection(f, fn) == nil {
			continue
		}
		if o.demangle {
			fn.Name = demangle.Filter(fn.Name, o.demangleOptions...)
		}
		res = append(res, fn)
	}

	// .symtab entries come first, so the stable sort keeps their names for
	// addresses listed in both tables.
	sort.SliceStable(res, func(i, j int) bool { return res[i].Start < res[j].Start })

	names := make(map[string]struct{}, len(res))
	out := res[:0]
	for _, fn := range res {
		if n := len(out); n > 0 && out[n-1].End > fn.Start {
			continue
		}
		if _, taken := names[fn.Name]; taken {
			fn.Name = fmt.Sprintf("%s_%x", fn.Name, uint64(fn.Start))
		}
		names[fn.Name] = struct{}{}
		out = append(out, fn)
	}
	return out, nil
}

func isStringSection(s *elf.Section) bool {
	if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_ALLOC == 0 || s.Flags&elf.SHF_EXECINSTR != 0 {
		return false
	}
	return s.Name == ".rodata" || strings.HasPrefix(s.Name, ".rodata.")
}

func readStrings(f *elf.File, o *options) ([]memdb.Item, error) {
	var res []memdb.Item
	for _, s := range f.Sections {
		if !isStringSection(s) {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", s.Name)
		}
		res = append(res, splitStrings(host.Address(s.Addr), data, o.minStringLen)...)
	}
	return res, nil
}

// splitStrings turns every printable NUL-terminated run of at least minLen
// bytes into a C string item. A printable run reaching the end of the data
// is kept as an unterminated string.
func splitStrings(base host.Address, data []byte, minLen int) []memdb.Item {
	var res []memdb.Item
	for start := 0; start < len(data); {
		end := start
		for end < len(data) && data[end] != 0 {
			end++
		}
		run := data[start:end]
		if len(run) >= minLen && printable(run) {
			it := memdb.Item{
				Address: base + host.Address(start),
				Kind:    memdb.KindData,
				StrType: host.StrC.String(),
				Text:    string(run),
			}
			if end < len(data) {
				it.Size = uint64(len(run) + 1)
			} else {
				it.Size = uint64(len(run))
				it.Unterminated = true
			}
			res = append(res, it)
		}
		start = end + 1
	}
	return res
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func findXrefs(f *elf.File, functions []memdb.Function, strs []memdb.Item, dis disassembler) ([]memdb.Xref, error) {
	targets := make(map[host.Address]struct{}, len(strs))
	for _, s := range strs {
		targets[s.Address] = struct{}{}
	}

	var (
		res     []memdb.Xref
		section *elf.Section
		code    []byte
	)
	for _, fn := range functions {
		if section == nil || uint64(fn.Start) < section.Addr || uint64(fn.End) > section.Addr+section.Size {
			section = codeSection(f, fn)
			if section == nil {
				continue
			}
			data, err := section.Data()
			if err != nil {
				return nil, errors.Wrapf(err, "read %s", section.Name)
			}
			code = data
		}
		off := uint64(fn.Start) - section.Addr
		body := code[off : off+uint64(fn.End-fn.Start)]
		for _, ref := range dis(uint64(fn.Start), body) {
			if _, ok := targets[host.Address(ref.to)]; ok {
				res = append(res, memdb.Xref{From: host.Address(ref.from), To: host.Address(ref.to)})
			}
		}
	}
	return res, nil
}

func codeSection(f *elf.File, fn memdb.Function) *elf.Section {
	for _, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_EXECINSTR == 0 {
			continue
		}
		if uint64(fn.Start) >= s.Addr && uint64(fn.End) <= s.Addr+s.Size {
			return s
		}
	}
	return nil
}
