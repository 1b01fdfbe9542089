// Package host describes the primitives a binary-analysis database exposes
// to the bundle scanner and the rename engine.
//
// The interfaces are deliberately small so a component only asks for the
// capabilities it uses. Implementations live in the memdb and elfhost
// packages, tests usually provide their own fakes.
package host

import (
	"fmt"
	"strconv"
)

// Address is a linear address inside the analysed image.
type Address uint64

// BadAddress is returned by every primitive that has nothing to return.
const BadAddress = ^Address(0)

func (a Address) String() string {
	if a == BadAddress {
		return "BADADDR"
	}
	return "0x" + strconv.FormatUint(uint64(a), 16)
}

// StringType classifies the literal defined at an address.
type StringType int

const (
	StrNone StringType = iota
	StrC
	StrC16
	StrC32
	StrPascal
	StrLen2
	StrLen4
)

var stringTypeNames = map[StringType]string{
	StrNone:   "none",
	StrC:      "c",
	StrC16:    "c16",
	StrC32:    "c32",
	StrPascal: "pascal",
	StrLen2:   "len2",
	StrLen4:   "len4",
}

func (t StringType) String() string {
	if s, ok := stringTypeNames[t]; ok {
		return s
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

// ParseStringType is the inverse of StringType.String.
func ParseStringType(s string) (StringType, error) {
	for t, name := range stringTypeNames {
		if name == s {
			return t, nil
		}
	}
	return StrNone, fmt.Errorf("unknown string type %q", s)
}

type AddressSpace interface {
	// MinAddress and MaxAddress bound the image.
	MinAddress() Address
	MaxAddress() Address
	// NextHead returns the first defined item after ea and below max, or
	// BadAddress.
	NextHead(ea, max Address) Address
}

type StringReader interface {
	StringType(ea Address) StringType
	// StringContents extracts the literal at ea, without its terminator.
	StringContents(ea Address, typ StringType) (string, error)
}

type XrefReader interface {
	// FirstXrefTo returns the first location referencing ea.
	FirstXrefTo(ea Address) Address
	// NextXrefTo returns the reference following from.
	NextXrefTo(ea, from Address) Address
}

type FunctionReader interface {
	// FunctionOffset renders ea as "name+offset" relative to the enclosing
	// function, or returns "" when ea is not inside one.
	FunctionOffset(ea Address) string
	// FunctionName returns the current name of the function containing ea.
	FunctionName(ea Address) string
}

type Namer interface {
	NameAddress(name string) Address
	SetName(ea Address, name string) error
}

// Host is the full set of primitives.
type Host interface {
	AddressSpace
	StringReader
	XrefReader
	FunctionReader
	Namer
}

// FormatFunctionOffset renders a location the way FunctionOffset does.
func FormatFunctionOffset(name string, off uint64) string {
	if off == 0 {
		return name
	}
	return fmt.Sprintf("%s+0x%x", name, off)
}

// MarshalText renders the address in hex so databases and reports stay
// readable.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Address) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

func (a *Address) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return a.UnmarshalText([]byte(s))
}

// ParseAddress accepts decimal, 0x-prefixed hex and BADADDR.
func ParseAddress(s string) (Address, error) {
	if s == "BADADDR" {
		return BadAddress, nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return BadAddress, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return Address(v), nil
}
