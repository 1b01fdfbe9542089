package scan

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/grafana/symbundle/pkg/bundle"
	"github.com/grafana/symbundle/pkg/host"
	"github.com/grafana/symbundle/pkg/metrics"
)

type mockItem struct {
	typ   host.StringType
	text  string
	fail  bool
	owner string
	xrefs []host.Address
}

type mockHost struct {
	items map[host.Address]mockItem
}

func (h *mockHost) heads() []host.Address {
	res := make([]host.Address, 0, len(h.items))
	for ea := range h.items {
		res = append(res, ea)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

func (h *mockHost) MinAddress() host.Address { return h.heads()[0] }

func (h *mockHost) MaxAddress() host.Address {
	heads := h.heads()
	return heads[len(heads)-1] + 1
}

func (h *mockHost) NextHead(ea, max host.Address) host.Address {
	for _, head := range h.heads() {
		if head > ea && head < max {
			return head
		}
	}
	return host.BadAddress
}

func (h *mockHost) StringType(ea host.Address) host.StringType {
	return h.items[ea].typ
}

func (h *mockHost) StringContents(ea host.Address, _ host.StringType) (string, error) {
	it := h.items[ea]
	if it.fail {
		return "", errors.New("no terminator")
	}
	return it.text, nil
}

func (h *mockHost) FirstXrefTo(ea host.Address) host.Address {
	if xs := h.items[ea].xrefs; len(xs) > 0 {
		return xs[0]
	}
	return host.BadAddress
}

func (h *mockHost) NextXrefTo(ea, from host.Address) host.Address {
	xs := h.items[ea].xrefs
	for i, x := range xs {
		if x == from && i+1 < len(xs) {
			return xs[i+1]
		}
	}
	return host.BadAddress
}

func (h *mockHost) FunctionOffset(ea host.Address) string {
	return h.items[ea].owner
}

func (h *mockHost) FunctionName(host.Address) string { return "" }

func testHost() *mockHost {
	return &mockHost{items: map[host.Address]mockItem{
		0x1000: {typ: host.StrNone},
		0x2000: {typ: host.StrC, text: "single", owner: "main+0x10", xrefs: []host.Address{0x1004}},
		0x2010: {typ: host.StrC, text: "orphan", owner: "main+0x20"},
		0x2020: {typ: host.StrC, text: "shared", owner: "main+0x30", xrefs: []host.Address{0x1008, 0x100c}},
		0x2030: {typ: host.StrC16, text: "wide", owner: "main+0x40", xrefs: []host.Address{0x1010}},
		0x2040: {typ: host.StrC, fail: true, xrefs: []host.Address{0x1014}},
		0x2050: {typ: host.StrPascal, text: "pascal", xrefs: []host.Address{0x1018}},
		0x2060: {typ: host.StrC, text: "three", xrefs: []host.Address{0x1, 0x2, 0x3}},
	}}
}

func TestScanSelectsSingleXrefCStrings(t *testing.T) {
	h := testHost()
	m := metrics.NewMetrics(nil)
	s := New(h, nil, m)

	b := s.Scan(h.MinAddress(), h.MaxAddress())

	expected := []bundle.Record{
		bundle.ScannedRecord("single", "main+0x10", 0x1004),
		bundle.ScannedRecord("", UnknownOwner, 0x1014),
	}
	if diff := cmp.Diff(expected, b.Records()); diff != "" {
		t.Errorf("scanned bundle mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, Stats{
		Visited:       8,
		NotCString:    3,
		NoXref:        1,
		MultiXref:     2,
		ExtractFailed: 1,
		Emitted:       2,
	}, s.Stats())
	require.Equal(t, 8.0, testutil.ToFloat64(m.ScannedItems))
	require.Equal(t, 2.0, testutil.ToFloat64(m.SkippedStrings.WithLabelValues(reasonMultiXref)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Records.WithLabelValues("scanned")))
}

func TestScanHonoursBounds(t *testing.T) {
	h := testHost()
	s := New(h, nil, nil)

	b := s.Scan(0x2000, 0x2010)
	require.Equal(t, 1, b.Len())
	require.Equal(t, "single", b.At(0).Literal)
	require.Equal(t, 1, s.Stats().Visited)

	b = s.Scan(0x3000, 0x4000)
	require.Equal(t, 0, b.Len())

	b = s.Scan(0x2000, 0x2000)
	require.Equal(t, 0, b.Len())
	require.Equal(t, 0, s.Stats().Visited)
}

func TestScanEmptyHost(t *testing.T) {
	h := &mockHost{items: map[host.Address]mockItem{0x10: {typ: host.StrNone}}}
	b := New(h, nil, nil).Scan(h.MinAddress(), h.MaxAddress())
	require.Equal(t, 0, b.Len())
	require.Equal(t, bundle.Scanned, b.Kind())
}
