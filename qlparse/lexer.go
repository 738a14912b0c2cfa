package qlparse

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// queryLexer tokenizes the query language. Keywords lex as identifiers
// and are matched case-insensitively by the grammar, so entity and field
// names such as Order or member stay usable.
var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Param", Pattern: `\?\d+`},
	{Name: "Float", Pattern: `\d+\.\d*(?:[eE][-+]?\d+)?|\d+[eE][-+]?\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[\p{L}_$][\p{L}\p{N}_$]*`},
	{Name: "Op", Pattern: `<>|<=|>=|!=|[=<>]`},
	{Name: "Punct", Pattern: `[-+*/(),.]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})
