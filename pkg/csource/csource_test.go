package csource

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestExtractFile(t *testing.T) {
	pairs, err := ExtractFile(afero.NewOsFs(), "testdata/util.c")
	require.NoError(t, err)
	require.Equal(t, []Pair{
		{Function: "usage", Literal: `usage: %s [-v] file\n`},
		{Function: "parse_args", Literal: "parsing arguments"},
		{Function: "parse_args", Literal: "wide"},
		{Function: "pick", Literal: "picking handler"},
	}, pairs)
}

func TestExtractRemovesQuotes(t *testing.T) {
	pairs, err := Extract([]byte(`void f(void) { puts("say \"hi\""); }`))
	require.NoError(t, err)
	require.Equal(t, []Pair{{Function: "f", Literal: `say \hi\`}}, pairs)
}

func TestExtractDeclarators(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		want string
	}{
		{name: "plain", src: `int f(void) { return puts("x"); }`, want: "f"},
		{name: "pointer result", src: `char *g(int n) { return "x"; }`, want: "g"},
		{name: "function pointer result", src: `int (*pick(const char *name))(int) { puts("x"); return 0; }`, want: "pick"},
		{name: "attribute", src: `static int __attribute__((noinline)) h(void) { return puts("x"); }`, want: "h"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pairs, err := Extract([]byte(tc.src))
			require.NoError(t, err)
			require.Equal(t, []Pair{{Function: tc.want, Literal: "x"}}, pairs)
		})
	}
}

func TestExtractNestedBlocks(t *testing.T) {
	src := `
struct opts { int v; };
int g(struct opts *o) {
	switch (o->v) {
	case 1: { puts("one"); break; }
	default: puts("other");
	}
	return 0;
}
int h(void) { return puts("h"); }
`
	pairs, err := Extract([]byte(src))
	require.NoError(t, err)
	require.Equal(t, []Pair{
		{Function: "g", Literal: "one"},
		{Function: "g", Literal: "other"},
		{Function: "h", Literal: "h"},
	}, pairs)
}

func TestExtractIgnoresNonStringConstants(t *testing.T) {
	pairs, err := Extract([]byte(`int f(void) { char c = 'q'; double d = 1.5; return c + 0x10 + puts("s"); }`))
	require.NoError(t, err)
	require.Equal(t, []Pair{{Function: "f", Literal: "s"}}, pairs)
}

func TestExtractNoFunctions(t *testing.T) {
	_, err := Extract([]byte(`int x = 1; const char *s = "a";`))
	require.True(t, errors.Is(err, ErrNoFunctions))
}

func TestExtractSyntaxError(t *testing.T) {
	_, err := Extract([]byte("void f(void) { puts(\"open); }\n"))
	require.True(t, errors.Is(err, ErrSyntax))
}
