package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		// 8 位/6 位需排在 3 位之前，否则 #ffffff 会被截断为 #fff。
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:px|pt|%)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root AST node of a theme table file.
//
//	themes cards v1 {
//	  set tweet {
//	    theme light { background: #ffffff }
//	  }
//	}
type Document struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"Newline* 'themes' @Ident"`
	Version string         `parser:"@Ident"`
	Sets    []*SetSection  `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// SetSection groups the themes that one card template may choose from.
type SetSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Name   string         `parser:"'set' @Ident"`
	Themes []*ThemeDecl   `parser:"'{' Newline* ( @@ Newline* )* '}'"`
}

// ThemeDecl is a named mapping of semantic roles to values.
type ThemeDecl struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"'theme' @Ident"`
	Extends string         `parser:"( 'extends' @Ident )?"`
	Entries []*Assignment  `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Assignment uses colon syntax (role: value).
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' @@"`
}

// Value represents the right-hand side of an assignment.
type Value struct {
	Color  *string        `parser:"  @Color"`
	String *StringLiteral `parser:"| @String"`
	Number *string        `parser:"| @Number"`
	Ident  *string        `parser:"| @Ident"`
}

// Raw returns the value as written, without quotes for strings.
func (v *Value) Raw() string {
	switch {
	case v == nil:
		return ""
	case v.Color != nil:
		return *v.Color
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Ident != nil:
		return *v.Ident
	default:
		return ""
	}
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses a theme table from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseNamed parses a theme table and reports positions against filename.
func ParseNamed(filename string, r io.Reader) (*Document, error) {
	return documentParser.Parse(filename, r)
}

// ParseString parses a theme table from a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}
