package elfhost

import (
	"debug/elf"
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/grafana/symbundle/pkg/host"
	"github.com/grafana/symbundle/pkg/host/memdb"
	"github.com/grafana/symbundle/pkg/scan"
)

func TestSplitStrings(t *testing.T) {
	data := []byte("hello\x00\x00\x01\x02\x00tab\there\x00x\x00tail")
	items := splitStrings(0x1000, data, 1)
	require.Equal(t, []memdb.Item{
		{Address: 0x1000, Size: 6, Kind: memdb.KindData, StrType: "c", Text: "hello"},
		{Address: 0x100a, Size: 9, Kind: memdb.KindData, StrType: "c", Text: "tab\there"},
		{Address: 0x1013, Size: 2, Kind: memdb.KindData, StrType: "c", Text: "x"},
		{Address: 0x1015, Size: 4, Kind: memdb.KindData, StrType: "c", Text: "tail", Unterminated: true},
	}, items)

	items = splitStrings(0x1000, data, 4)
	require.Len(t, items, 3)
}

func TestX86RIPRelative(t *testing.T) {
	body := []byte{
		0x48, 0x8d, 0x3d, 0x10, 0x00, 0x00, 0x00, // lea rdi, [rip+0x10]
		0x90,                                     // nop
		0x48, 0x8d, 0x35, 0xf0, 0xff, 0xff, 0xff, // lea rsi, [rip-0x10]
	}
	refs := x86Refs(0x1000, body, 64)
	require.Equal(t, []ref{
		{from: 0x1000, to: 0x1017},
		{from: 0x1008, to: 0x1008 + 7 - 0x10},
	}, refs)
}

func TestX86Immediate64(t *testing.T) {
	body := []byte{
		0xbf, 0x15, 0x20, 0x40, 0x00, // mov edi, 0x402015
		0x8b, 0x04, 0x25, 0x30, 0x20, 0x40, 0x00, // mov eax, [0x402030]
		0x31, 0xc0, // xor eax, eax
	}
	refs := x86Refs(0x401000, body, 64)
	require.Equal(t, []ref{
		{from: 0x401000, to: 0x402015},
		{from: 0x401005, to: 0x402030},
	}, refs)
}

func TestX86Absolute32(t *testing.T) {
	body := []byte{
		0x68, 0x10, 0xa0, 0x04, 0x08, // push 0x804a010
		0xc3, // ret
	}
	refs := x86Refs(0x8048000, body, 32)
	require.Equal(t, []ref{{from: 0x8048000, to: 0x804a010}}, refs)
}

func TestARM64AdrpAdd(t *testing.T) {
	body := []byte{
		0x00, 0x00, 0x00, 0xb0, // adrp x0, page+1
		0x00, 0x40, 0x00, 0x91, // add x0, x0, #0x10
		0x00, 0x40, 0x00, 0x91, // add x0, x0, #0x10, page no longer known
	}
	refs := arm64Refs(0x400000, body)
	require.Equal(t, []ref{{from: 0x400004, to: 0x401010}}, refs)
}

func TestUnsupportedArch(t *testing.T) {
	_, err := disassemblerFor(elf.EM_MIPS)
	require.True(t, errors.Is(err, ErrUnsupportedArch))
}

func TestLoadFixtures(t *testing.T) {
	for _, tc := range []struct {
		name       string
		path       string
		usageXref  host.Address
		usageStr   host.Address
		openXref   host.Address
		openString host.Address
	}{
		{
			name:      "non-PIE immediates",
			path:      "testdata/strings-nopie",
			usageXref: 0x401001, usageStr: 0x402000,
			openXref: 0x40100c, openString: 0x402016,
		},
		{
			name:      "PIE RIP-relative",
			path:      "testdata/strings-pie",
			usageXref: 0x1001, usageStr: 0x2000,
			openXref: 0x100e, openString: 0x2016,
		},
		{
			name:      "rodata before text",
			path:      "testdata/strings-rodata-first",
			usageXref: 0x2001, usageStr: 0x1000,
			openXref: 0x200e, openString: 0x1016,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, err := Load(tc.path)
			require.NoError(t, err)

			require.Equal(t, []string{"sink", "usage", "open_file", "report", "_start"},
				lo.Map(db.Functions, func(fn memdb.Function, _ int) string { return fn.Name }))
			require.Equal(t, host.StrC, db.StringType(tc.usageStr))
			require.Equal(t, tc.usageXref, db.FirstXrefTo(tc.usageStr))
			require.Equal(t, tc.openXref, db.FirstXrefTo(tc.openString))

			records := scan.New(db, nil, nil).Scan(db.MinAddress(), db.MaxAddress()).Records()
			require.Len(t, records, 2)
			require.Equal(t, "usage: tool [-v] file", records[0].Literal)
			require.Equal(t, tc.usageXref, records[0].Xref)
			require.Equal(t, "usage", db.FunctionName(records[0].Xref))
			require.Equal(t, "open failed", records[1].Literal)
			require.Equal(t, "open_file", db.FunctionName(records[1].Xref))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist")
	require.Error(t, err)
}
