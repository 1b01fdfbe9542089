// Package bundle holds the records produced by the address-space scanner and
// the record-file reader.
package bundle

import (
	"fmt"

	"github.com/grafana/symbundle/pkg/host"
)

// Kind tells scanned bundles apart from reference bundles.
type Kind int

const (
	Scanned Kind = iota
	Reference
)

func (k Kind) String() string {
	switch k {
	case Scanned:
		return "scanned"
	case Reference:
		return "reference"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Record pairs a string literal with a symbol name.
//
// Scanned records carry the address of the single instruction referencing
// the literal in Xref. Reference records only carry the literal and the
// desired name, both addresses are BadAddress.
type Record struct {
	Literal  string
	Symbol   string
	Resolved host.Address
	Xref     host.Address
}

// ScannedRecord builds a record found in the address space.
func ScannedRecord(literal, symbol string, xref host.Address) Record {
	return Record{
		Literal:  literal,
		Symbol:   symbol,
		Resolved: host.BadAddress,
		Xref:     xref,
	}
}

// ReferenceRecord builds a record read from a record file.
func ReferenceRecord(literal, symbol string) Record {
	return Record{
		Literal:  literal,
		Symbol:   symbol,
		Resolved: host.BadAddress,
		Xref:     host.BadAddress,
	}
}

func (r Record) String() string {
	return fmt.Sprintf("{%q, %q, %s, %s}", r.Literal, r.Symbol, r.Resolved, r.Xref)
}

// Bundle is an append-only, insertion-ordered collection of records.
// Records are stored and returned by value.
type Bundle struct {
	kind    Kind
	records []Record
}

func New(kind Kind) *Bundle {
	return &Bundle{kind: kind}
}

func (b *Bundle) Kind() Kind {
	return b.kind
}

func (b *Bundle) Append(r Record) {
	b.records = append(b.records, r)
}

func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.records)
}

// At returns the i-th record in insertion order.
func (b *Bundle) At(i int) Record {
	return b.records[i]
}

// Records returns a copy of all records in insertion order.
func (b *Bundle) Records() []Record {
	if b == nil {
		return nil
	}
	res := make([]Record, len(b.records))
	copy(res, b.records)
	return res
}
