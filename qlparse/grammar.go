package qlparse

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// The raw parse tree mirrors the grammar and is converted to nodes after
// parsing.

type rawQuery struct {
	Pos     lexer.Position
	Select  *rawSelect      `"SELECT" @@`
	From    []*rawDecl      `"FROM" @@ ( "," @@ )*`
	Where   *rawOr          `( "WHERE" @@ )?`
	OrderBy []*rawOrderItem `( "ORDER" "BY" @@ ( "," @@ )* )?`
	Bounds  []*rawBoundItem `@@*`
}

type rawSelect struct {
	Distinct bool       `@"DISTINCT"?`
	Target   *rawTarget `@@`
}

type rawTarget struct {
	Object *string  `  "OBJECT" "(" @Ident ")"`
	Call   *rawCall `| @@`
	Path   *rawPath `| @@`
}

type rawDecl struct {
	Member *rawMember `  @@`
	Range  *rawRange  `| @@`
}

type rawMember struct {
	Pos  lexer.Position
	Path *rawPath `"IN" "(" @@ ")" "AS"?`
	Var  string   `@Ident`
}

type rawRange struct {
	Pos    lexer.Position
	Entity string `@Ident "AS"?`
	Var    string `@Ident`
}

type rawOrderItem struct {
	Path *rawPath `@@`
	Dir  string   `@( "ASC" | "DESC" )?`
}

// rawBoundItem is an OFFSET or LIMIT clause; either may come first.
type rawBoundItem struct {
	Pos   lexer.Position
	Kind  string    `@( "OFFSET" | "LIMIT" )`
	Value *rawBound `@@`
}

type rawBound struct {
	Param *string `  @Param`
	Int   *string `| @Int`
}

type rawOr struct {
	Terms []*rawAnd `@@ ( "OR" @@ )*`
}

type rawAnd struct {
	Factors []*rawNot `@@ ( "AND" @@ )*`
}

type rawNot struct {
	Not  bool         `@"NOT"?`
	Cond *rawCondBase `@@`
}

type rawCondBase struct {
	Group *rawOr        `  "(" @@ ")"`
	Pred  *rawPredicate `| @@`
}

type rawPredicate struct {
	Pos        lexer.Position
	Left       *rawExpr       `@@`
	Comparison *rawComparison `( @@`
	Between    *rawBetween    `| @@`
	In         *rawIn         `| @@`
	Like       *rawLike       `| @@`
	Is         *rawIs         `| @@`
	MemberOf   *rawMemberOf   `| @@ )`
}

type rawComparison struct {
	Op    string   `@Op`
	Right *rawExpr `@@`
}

type rawBetween struct {
	Not  bool     `@"NOT"? "BETWEEN"`
	Low  *rawExpr `@@`
	High *rawExpr `"AND" @@`
}

type rawIn struct {
	Not    bool       `@"NOT"? "IN"`
	Values []*rawExpr `"(" @@ ( "," @@ )* ")"`
}

type rawLike struct {
	Not     bool        `@"NOT"? "LIKE"`
	Pattern *rawPrimary `@@`
	Escape  *rawPrimary `( "ESCAPE" @@ )?`
}

type rawIs struct {
	Not  bool   `"IS" @"NOT"?`
	What string `@( "NULL" | "EMPTY" )`
}

type rawMemberOf struct {
	Not  bool     `@"NOT"? "MEMBER" "OF"?`
	Path *rawPath `@@`
}

type rawExpr struct {
	Left *rawTerm  `@@`
	Rest []*rawAdd `@@*`
}

type rawAdd struct {
	Op   string   `@( "+" | "-" )`
	Term *rawTerm `@@`
}

type rawTerm struct {
	Left *rawFactor `@@`
	Rest []*rawMul  `@@*`
}

type rawMul struct {
	Op     string     `@( "*" | "/" )`
	Factor *rawFactor `@@`
}

type rawFactor struct {
	Neg     bool        `@"-"?`
	Primary *rawPrimary `@@`
}

type rawPrimary struct {
	Param  *string  `  @Param`
	Float  *string  `| @Float`
	Int    *string  `| @Int`
	String *string  `| @String`
	Bool   *string  `| @( "TRUE" | "FALSE" )`
	Call   *rawCall `| @@`
	Path   *rawPath `| @@`
	Sub    *rawExpr `| "(" @@ ")"`
}

type rawCall struct {
	Pos      lexer.Position
	Name     string     `@Ident "("`
	Distinct bool       `@"DISTINCT"?`
	Args     []*rawExpr `( @@ ( "," @@ )* )? ")"`
}

type rawPath struct {
	Segments []string `@Ident ( "." @Ident )*`
}
