// Package memdb implements the host primitives on top of a small in-memory
// analysis database that can be stored as YAML.
package memdb

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/grafana/symbundle/pkg/host"
)

var (
	ErrBadAddress    = errors.New("no function starts at address")
	ErrUnknownName   = errors.New("unknown name")
	ErrEmptyName     = errors.New("empty name")
	ErrDuplicateName = errors.New("name already in use")
	ErrNotString     = errors.New("no string of the requested type")
	ErrUnterminated  = errors.New("string is not terminated")
)

type Kind string

const (
	KindCode Kind = "code"
	KindData Kind = "data"
)

// Item is a defined item. Text holds the literal of string items without
// its terminator; Unterminated marks literals whose extraction fails.
type Item struct {
	Address      host.Address `yaml:"address"`
	Size         uint64       `yaml:"size"`
	Kind         Kind         `yaml:"kind"`
	StrType      string       `yaml:"str_type,omitempty"`
	Text         string       `yaml:"text,omitempty"`
	Unterminated bool         `yaml:"unterminated,omitempty"`
}

func (it Item) End() host.Address {
	return it.Address + host.Address(it.Size)
}

// Function covers [Start, End).
type Function struct {
	Name  string       `yaml:"name"`
	Start host.Address `yaml:"start"`
	End   host.Address `yaml:"end"`
}

// Xref records that the instruction at From uses the item at To.
type Xref struct {
	From host.Address `yaml:"from"`
	To   host.Address `yaml:"to"`
}

// Rename is a name change applied through SetName.
type Rename struct {
	Address host.Address `yaml:"address"`
	Old     string       `yaml:"old"`
	New     string       `yaml:"new"`
}

type Database struct {
	Items     []Item     `yaml:"items"`
	Functions []Function `yaml:"functions"`
	Xrefs     []Xref     `yaml:"xrefs"`
	Renames   []Rename   `yaml:"renames,omitempty"`

	heads     []host.Address
	items     map[host.Address]int
	funcStart map[host.Address]int
	names     map[string]int
	xrefsTo   map[host.Address][]host.Address
}

var _ host.Host = (*Database)(nil)

// New validates the parts and builds the lookup indexes.
func New(items []Item, functions []Function, xrefs []Xref) (*Database, error) {
	db := &Database{
		Items:     items,
		Functions: functions,
		Xrefs:     xrefs,
	}
	if err := db.Reindex(); err != nil {
		return nil, err
	}
	return db, nil
}

// Validate reports every inconsistency at once.
func (db *Database) Validate() error {
	var errs error

	items := append([]Item(nil), db.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].Address < items[j].Address })
	for i, it := range items {
		if it.Kind != KindCode && it.Kind != KindData {
			errs = multierror.Append(errs, fmt.Errorf("item %s: unknown kind %q", it.Address, it.Kind))
		}
		if it.StrType != "" {
			if _, err := host.ParseStringType(it.StrType); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("item %s: %w", it.Address, err))
			}
		}
		if i > 0 && items[i-1].End() > it.Address {
			errs = multierror.Append(errs, fmt.Errorf("item %s overlaps item %s", it.Address, items[i-1].Address))
		}
	}

	funcs := append([]Function(nil), db.Functions...)
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Start < funcs[j].Start })
	for i, fn := range funcs {
		if fn.Name == "" {
			errs = multierror.Append(errs, fmt.Errorf("function %s has no name", fn.Start))
		}
		if fn.End <= fn.Start {
			errs = multierror.Append(errs, fmt.Errorf("function %s has an empty range", fn.Name))
		}
		if i > 0 && funcs[i-1].End > fn.Start {
			errs = multierror.Append(errs, fmt.Errorf("function %s overlaps function %s", fn.Name, funcs[i-1].Name))
		}
	}
	for name, n := range lo.CountValues(lo.Map(funcs, func(fn Function, _ int) string { return fn.Name })) {
		if n > 1 && name != "" {
			errs = multierror.Append(errs, fmt.Errorf("function name %q used %d times", name, n))
		}
	}

	known := lo.SliceToMap(items, func(it Item) (host.Address, struct{}) { return it.Address, struct{}{} })
	for _, x := range db.Xrefs {
		if _, ok := known[x.To]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("xref %s -> %s targets no item", x.From, x.To))
		}
	}
	return errs
}

// Reindex validates the database and rebuilds the lookup indexes. It must be
// called after the exported fields are changed directly.
func (db *Database) Reindex() error {
	if err := db.Validate(); err != nil {
		return err
	}

	sort.Slice(db.Items, func(i, j int) bool { return db.Items[i].Address < db.Items[j].Address })
	sort.Slice(db.Functions, func(i, j int) bool { return db.Functions[i].Start < db.Functions[j].Start })

	db.items = make(map[host.Address]int, len(db.Items))
	for i, it := range db.Items {
		db.items[it.Address] = i
	}
	db.funcStart = make(map[host.Address]int, len(db.Functions))
	db.names = make(map[string]int, len(db.Functions))
	for i, fn := range db.Functions {
		db.funcStart[fn.Start] = i
		db.names[fn.Name] = i
	}

	heads := lo.Uniq(append(
		lo.Map(db.Items, func(it Item, _ int) host.Address { return it.Address }),
		lo.Map(db.Functions, func(fn Function, _ int) host.Address { return fn.Start })...,
	))
	sort.Slice(heads, func(i, j int) bool { return heads[i] < heads[j] })
	db.heads = heads

	db.xrefsTo = make(map[host.Address][]host.Address)
	for _, x := range db.Xrefs {
		db.xrefsTo[x.To] = append(db.xrefsTo[x.To], x.From)
	}
	for to, froms := range db.xrefsTo {
		sort.Slice(froms, func(i, j int) bool { return froms[i] < froms[j] })
		db.xrefsTo[to] = lo.Uniq(froms)
	}
	return nil
}

func (db *Database) MinAddress() host.Address {
	if len(db.heads) == 0 {
		return host.BadAddress
	}
	return db.heads[0]
}

func (db *Database) MaxAddress() host.Address {
	if len(db.heads) == 0 {
		return host.BadAddress
	}
	var max host.Address
	for _, it := range db.Items {
		if it.End() > max {
			max = it.End()
		}
	}
	for _, fn := range db.Functions {
		if fn.End > max {
			max = fn.End
		}
	}
	return max
}

func (db *Database) NextHead(ea, max host.Address) host.Address {
	i := sort.Search(len(db.heads), func(i int) bool { return db.heads[i] > ea })
	if i == len(db.heads) || db.heads[i] >= max {
		return host.BadAddress
	}
	return db.heads[i]
}

func (db *Database) item(ea host.Address) (Item, bool) {
	i, ok := db.items[ea]
	if !ok {
		return Item{}, false
	}
	return db.Items[i], true
}

func (db *Database) StringType(ea host.Address) host.StringType {
	it, ok := db.item(ea)
	if !ok || it.StrType == "" {
		return host.StrNone
	}
	typ, err := host.ParseStringType(it.StrType)
	if err != nil {
		return host.StrNone
	}
	return typ
}

func (db *Database) StringContents(ea host.Address, typ host.StringType) (string, error) {
	if db.StringType(ea) != typ || typ == host.StrNone {
		return "", errors.Wrapf(ErrNotString, "%s (%s)", ea, typ)
	}
	it, _ := db.item(ea)
	if it.Unterminated {
		return "", errors.Wrapf(ErrUnterminated, "%s", ea)
	}
	return it.Text, nil
}

func (db *Database) FirstXrefTo(ea host.Address) host.Address {
	if froms := db.xrefsTo[ea]; len(froms) > 0 {
		return froms[0]
	}
	return host.BadAddress
}

func (db *Database) NextXrefTo(ea, from host.Address) host.Address {
	froms := db.xrefsTo[ea]
	i := sort.Search(len(froms), func(i int) bool { return froms[i] > from })
	if i == len(froms) {
		return host.BadAddress
	}
	return froms[i]
}

func (db *Database) function(ea host.Address) (Function, bool) {
	i := sort.Search(len(db.Functions), func(i int) bool { return db.Functions[i].Start > ea })
	i--
	if i < 0 || ea >= db.Functions[i].End {
		return Function{}, false
	}
	return db.Functions[i], true
}

func (db *Database) FunctionOffset(ea host.Address) string {
	fn, ok := db.function(ea)
	if !ok {
		return ""
	}
	return host.FormatFunctionOffset(fn.Name, uint64(ea-fn.Start))
}

func (db *Database) FunctionName(ea host.Address) string {
	fn, ok := db.function(ea)
	if !ok {
		return ""
	}
	return fn.Name
}

func (db *Database) NameAddress(name string) host.Address {
	i, ok := db.names[name]
	if !ok {
		return host.BadAddress
	}
	return db.Functions[i].Start
}

// SetName renames the function starting at ea. Renaming a function to its
// current name is a no-op.
func (db *Database) SetName(ea host.Address, name string) error {
	i, ok := db.funcStart[ea]
	if !ok {
		return errors.Wrapf(ErrBadAddress, "%s", ea)
	}
	if name == "" {
		return errors.Wrapf(ErrEmptyName, "%s", ea)
	}
	old := db.Functions[i].Name
	if old == name {
		return nil
	}
	if other, taken := db.names[name]; taken && other != i {
		return errors.Wrapf(ErrDuplicateName, "%q at %s", name, db.Functions[other].Start)
	}
	delete(db.names, old)
	db.names[name] = i
	db.Functions[i].Name = name
	db.Renames = append(db.Renames, Rename{Address: ea, Old: old, New: name})
	return nil
}
