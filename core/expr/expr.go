// Package expr implements the expression parser used by the statement
// builders. It turns condition, projection, ordering and grouping text into a
// structured expression tree, and records the position of every named
// placeholder found while parsing a condition.
package expr

import (
	"fmt"
	"strings"
)

// Kind discriminates the node variants of an expression tree.
type Kind int

// Expression node kinds.
const (
	KindIdent Kind = iota
	KindLiteral
	KindPlaceholder
	KindOperator
	KindFuncCall
)

// Ident is a resolved identifier path. In document mode the parts are nested
// document path segments; in table mode they are the (optionally qualified)
// column reference parts.
type Ident struct {
	Parts []string
}

// String joins the path parts with dots.
func (i *Ident) String() string {
	return strings.Join(i.Parts, ".")
}

// Expr is a single node of a parsed expression tree. Exactly one of the
// variant fields is meaningful, selected by Kind.
type Expr struct {
	Kind Kind

	Ident       *Ident // KindIdent
	Literal     any    // KindLiteral: int64, float64, string, bool or nil
	Placeholder string // KindPlaceholder: the placeholder name
	Position    int    // KindPlaceholder: 0-based position in the condition

	Op   string  // KindOperator / KindFuncCall: operator symbol or function name
	Args []*Expr // KindOperator / KindFuncCall
}

// SortKey is one entry of a parsed order specification.
type SortKey struct {
	Expr *Expr
	Desc bool
}

// Projection is one entry of a parsed projection list.
type Projection struct {
	Expr  *Expr
	Alias string
}

// Parsed is the result of parsing a full expression: the tree and the
// placeholder-name-to-position map collected along the way.
type Parsed struct {
	Tree         *Expr
	Placeholders map[string]int
}

// ParseError reports a malformed expression, naming the byte offset at which
// parsing failed.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
}

// ParseExpr parses a full expression in the given mode. Named placeholders
// (":name") are assigned 0-based positions in first-occurrence order.
func ParseExpr(text string, tableMode bool) (*Parsed, error) {
	p := newParser(text, tableMode)
	tree, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return &Parsed{Tree: tree, Placeholders: p.placeholders}, nil
}

// ParseExprList parses a comma-separated expression list, as used by grouping
// criteria.
func ParseExprList(text string, tableMode bool) ([]*Expr, error) {
	p := newParser(text, tableMode)
	var list []*Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.accept(tokComma) {
			break
		}
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return list, nil
}

// ParseOrderSpec parses a comma-separated order specification, each entry an
// expression with an optional ASC or DESC suffix.
func ParseOrderSpec(text string, tableMode bool) ([]SortKey, error) {
	p := newParser(text, tableMode)
	var keys []SortKey
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		key := SortKey{Expr: e}
		if p.acceptKeyword("DESC") {
			key.Desc = true
		} else {
			p.acceptKeyword("ASC")
		}
		keys = append(keys, key)
		if !p.accept(tokComma) {
			break
		}
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return keys, nil
}

// ParseProjection parses a comma-separated projection list, each entry an
// expression with an optional "AS alias" suffix. In document mode the entries
// select document fields for extraction; in table mode they select columns.
func ParseProjection(text string, tableMode bool) ([]Projection, error) {
	p := newParser(text, tableMode)
	var list []Projection
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		proj := Projection{Expr: e}
		if p.acceptKeyword("AS") {
			alias, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			proj.Alias = alias
		}
		list = append(list, proj)
		if !p.accept(tokComma) {
			break
		}
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return list, nil
}

// ParseDocumentField parses a nested document path such as "a.b.c". A leading
// "$." prefix is accepted and ignored; the caller strips a bare leading "$"
// before resolution.
func ParseDocumentField(text string) (*Ident, error) {
	p := newParser(text, false)
	ident, err := p.parseIdentPath()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return ident, nil
}

// ParseTableField parses a column reference, optionally table- or
// schema-qualified.
func ParseTableField(text string) (*Ident, error) {
	p := newParser(text, true)
	ident, err := p.parseIdentPath()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return ident, nil
}

// ParseTableUpdateField parses the target column of a table update operation.
// The grammar matches ParseTableField; the entry point is kept separate
// because the update path never accepts document-root syntax.
func ParseTableUpdateField(text string) (*Ident, error) {
	return ParseTableField(text)
}
