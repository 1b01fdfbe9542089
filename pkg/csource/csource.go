// Package csource extracts the string literals used by each function
// defined in a C translation unit.
//
// Sources are parsed with the tree-sitter C grammar. No preprocessing is
// done: literals inside macro definitions are not part of any function.
package csource

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/spf13/afero"
)

var (
	ErrNoFunctions = errors.New("no function definitions found")
	ErrSyntax      = errors.New("syntax error")
)

// Pair is a string literal used inside the body of Function.
type Pair struct {
	Function string
	Literal  string
}

// ExtractFile reads path from fs and extracts its pairs.
func ExtractFile(fs afero.Fs, path string) ([]Pair, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	pairs, err := Extract(src)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return pairs, nil
}

// Extract returns the literals of every function definition in source
// order. Adjacent literals are concatenated, double quotes are removed from
// the result and empty literals are dropped.
func Extract(src []byte) ([]Pair, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if n := firstError(root); n != nil {
			return nil, errors.Wrapf(ErrSyntax, "line %d", n.StartPoint().Row+1)
		}
		return nil, ErrSyntax
	}

	var (
		pairs     []Pair
		functions int
	)
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "function_definition" {
			return true
		}
		name := declaratorName(n.ChildByFieldName("declarator"), src)
		if name == "" {
			return false
		}
		functions++
		for _, lit := range literals(n.ChildByFieldName("body"), src) {
			pairs = append(pairs, Pair{Function: name, Literal: lit})
		}
		return false
	})

	if functions == 0 {
		return nil, ErrNoFunctions
	}
	return pairs, nil
}

// walk visits the named nodes below n depth first. Children are skipped
// when visit returns false.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if e := firstError(n.Child(i)); e != nil {
			return e
		}
	}
	return nil
}

// declaratorName follows nested declarators down to the declared
// identifier, so `int (*pick(const char *))(int)` yields pick.
func declaratorName(n *sitter.Node, src []byte) string {
	for n != nil {
		switch n.Type() {
		case "identifier":
			return n.Content(src)
		case "parenthesized_declarator", "attributed_declarator":
			n = n.NamedChild(0)
		default:
			n = n.ChildByFieldName("declarator")
		}
	}
	return ""
}

func literals(body *sitter.Node, src []byte) []string {
	var res []string
	add := func(parts ...string) {
		lit := strings.ReplaceAll(strings.Join(parts, ""), `"`, "")
		if lit != "" {
			res = append(res, lit)
		}
	}
	walk(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "concatenated_string":
			var parts []string
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if part := n.NamedChild(i); part.Type() == "string_literal" {
					parts = append(parts, contents(part, src))
				}
			}
			add(parts...)
			return false
		case "string_literal":
			add(contents(n, src))
			return false
		}
		return true
	})
	return res
}

// contents returns the text between the quotes of a string literal with its
// escapes as written. Encoding prefixes (L, u, U, u8) are dropped.
func contents(n *sitter.Node, src []byte) string {
	text := n.Content(src)
	start := strings.IndexByte(text, '"')
	if start < 0 || len(text) < start+2 {
		return ""
	}
	return text[start+1 : len(text)-1]
}
