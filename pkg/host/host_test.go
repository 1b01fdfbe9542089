package host

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressString(t *testing.T) {
	require.Equal(t, "0x401000", Address(0x401000).String())
	require.Equal(t, "BADADDR", BadAddress.String())
}

func TestParseAddress(t *testing.T) {
	for in, expected := range map[string]Address{
		"0x10":    0x10,
		"16":      16,
		"BADADDR": BadAddress,
		"0":       0,
	} {
		a, err := ParseAddress(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, a, in)
	}
	_, err := ParseAddress("main")
	require.Error(t, err)
}

func TestAddressText(t *testing.T) {
	var a Address
	require.NoError(t, a.UnmarshalText([]byte("0xdead")))
	require.Equal(t, Address(0xdead), a)
	text, err := a.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "0xdead", string(text))
}

func TestStringType(t *testing.T) {
	for _, typ := range []StringType{StrNone, StrC, StrC16, StrC32, StrPascal, StrLen2, StrLen4} {
		parsed, err := ParseStringType(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}
	_, err := ParseStringType("utf-9")
	require.Error(t, err)
	require.Equal(t, "unknown(42)", StringType(42).String())
}

func TestFormatFunctionOffset(t *testing.T) {
	require.Equal(t, "main", FormatFunctionOffset("main", 0))
	require.Equal(t, "main+0x1a", FormatFunctionOffset("main", 0x1a))
}
