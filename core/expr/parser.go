package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOperator
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokDot
	tokColon
	tokDollar
	tokStar
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type parser struct {
	tokens       []token
	idx          int
	tableMode    bool
	placeholders map[string]int
}

func newParser(text string, tableMode bool) *parser {
	return &parser{
		tokens:       tokenize(text),
		tableMode:    tableMode,
		placeholders: map[string]int{},
	}
}

// tokenize splits the input into tokens. Malformed input never fails here;
// unexpected characters surface as operator tokens the parser rejects.
func tokenize(text string) []token {
	var tokens []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case unicode.IsLetter(rune(c)) || c == '_':
			start := i
			for i < len(text) && (unicode.IsLetter(rune(text[i])) || unicode.IsDigit(rune(text[i])) || text[i] == '_') {
				i++
			}
			tokens = append(tokens, token{tokIdent, text[start:i], start})
		case c == '`':
			start := i
			i++
			var sb strings.Builder
			for i < len(text) {
				if text[i] == '`' {
					if i+1 < len(text) && text[i+1] == '`' {
						sb.WriteByte('`')
						i += 2
						continue
					}
					i++
					break
				}
				sb.WriteByte(text[i])
				i++
			}
			tokens = append(tokens, token{tokIdent, sb.String(), start})
		case c == '\'' || c == '"':
			quote := c
			start := i
			i++
			var sb strings.Builder
			for i < len(text) {
				if text[i] == '\\' && i+1 < len(text) {
					sb.WriteByte(text[i+1])
					i += 2
					continue
				}
				if text[i] == quote {
					if i+1 < len(text) && text[i+1] == quote {
						sb.WriteByte(quote)
						i += 2
						continue
					}
					i++
					break
				}
				sb.WriteByte(text[i])
				i++
			}
			tokens = append(tokens, token{tokString, sb.String(), start})
		case unicode.IsDigit(rune(c)):
			start := i
			for i < len(text) && (unicode.IsDigit(rune(text[i])) || text[i] == '.' || text[i] == 'e' || text[i] == 'E') {
				if (text[i] == 'e' || text[i] == 'E') && i+1 < len(text) && (text[i+1] == '+' || text[i+1] == '-') {
					i++
				}
				i++
			}
			tokens = append(tokens, token{tokNumber, text[start:i], start})
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case c == '[':
			tokens = append(tokens, token{tokLBracket, "[", i})
			i++
		case c == ']':
			tokens = append(tokens, token{tokRBracket, "]", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
		case c == '.':
			tokens = append(tokens, token{tokDot, ".", i})
			i++
		case c == ':':
			tokens = append(tokens, token{tokColon, ":", i})
			i++
		case c == '$':
			tokens = append(tokens, token{tokDollar, "$", i})
			i++
		case c == '*':
			tokens = append(tokens, token{tokStar, "*", i})
			i++
		default:
			start := i
			two := ""
			if i+1 < len(text) {
				two = text[i : i+2]
			}
			switch two {
			case "==", "!=", "<>", "<=", ">=", "&&", "||":
				tokens = append(tokens, token{tokOperator, two, start})
				i += 2
			default:
				tokens = append(tokens, token{tokOperator, string(c), start})
				i++
			}
		}
	}
	return tokens
}

func (p *parser) peek() token {
	if p.idx >= len(p.tokens) {
		return token{kind: tokEOF, pos: p.endPos()}
	}
	return p.tokens[p.idx]
}

func (p *parser) next() token {
	t := p.peek()
	if p.idx < len(p.tokens) {
		p.idx++
	}
	return t
}

func (p *parser) endPos() int {
	if len(p.tokens) == 0 {
		return 0
	}
	last := p.tokens[len(p.tokens)-1]
	return last.pos + len(last.text)
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.idx++
		return true
	}
	return false
}

// acceptKeyword consumes an identifier token matching the keyword,
// case-insensitively.
func (p *parser) acceptKeyword(keyword string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, keyword) {
		p.idx++
		return true
	}
	return false
}

func (p *parser) peekKeyword(keyword string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, keyword)
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, found %q", what, t.text)
	}
	p.idx++
	return t, nil
}

func (p *parser) expectIdent() (string, error) {
	t, err := p.expect(tokIdent, "identifier")
	if err != nil {
		return "", err
	}
	return t.text, nil
}

func (p *parser) expectEOF() error {
	t := p.peek()
	if t.kind != tokEOF {
		return p.errorf(t, "unexpected trailing input %q", t.text)
	}
	return nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &ParseError{Pos: t.pos, Message: fmt.Sprintf(format, args...)}
}

// parseExpr parses a full boolean expression with the usual precedence:
// OR < AND < NOT < comparison < additive < multiplicative < unary.
func (p *parser) parseExpr() (*Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (*Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if p.acceptKeyword("OR") || p.acceptOperator("||") {
			right, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			left = &Expr{Kind: KindOperator, Op: "||", Args: []*Expr{left, right}}
			continue
		}
		return left, nil
	}
}

func (p *parser) parseAnd() (*Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		if p.acceptKeyword("AND") || p.acceptOperator("&&") {
			right, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			left = &Expr{Kind: KindOperator, Op: "&&", Args: []*Expr{left, right}}
			continue
		}
		return left, nil
	}
}

func (p *parser) parseNot() (*Expr, error) {
	if p.acceptKeyword("NOT") {
		arg, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: KindOperator, Op: "not", Args: []*Expr{arg}}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (*Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if t := p.peek(); t.kind == tokOperator {
		switch t.text {
		case "=", "==", "!=", "<>", "<", "<=", ">", ">=":
			p.idx++
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			op := t.text
			if op == "=" {
				op = "=="
			}
			if op == "<>" {
				op = "!="
			}
			return &Expr{Kind: KindOperator, Op: op, Args: []*Expr{left, right}}, nil
		}
	}

	negated := false
	if p.peekKeyword("NOT") {
		// NOT here only binds to IN / LIKE / BETWEEN / REGEXP.
		save := p.idx
		p.idx++
		if !p.peekKeyword("IN") && !p.peekKeyword("LIKE") && !p.peekKeyword("BETWEEN") && !p.peekKeyword("REGEXP") {
			p.idx = save
			return left, nil
		}
		negated = true
	}

	switch {
	case p.acceptKeyword("IN"):
		if _, err := p.expect(tokLParen, `"("`); err != nil {
			return nil, err
		}
		args := []*Expr{left}
		if p.peek().kind != tokRParen {
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, e)
				if !p.accept(tokComma) {
					break
				}
			}
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return negate(&Expr{Kind: KindOperator, Op: "in", Args: args}, negated), nil
	case p.acceptKeyword("LIKE"):
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return negate(&Expr{Kind: KindOperator, Op: "like", Args: []*Expr{left, right}}, negated), nil
	case p.acceptKeyword("BETWEEN"):
		low, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if !p.acceptKeyword("AND") {
			return nil, p.errorf(p.peek(), "expected AND in BETWEEN expression")
		}
		high, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return negate(&Expr{Kind: KindOperator, Op: "between", Args: []*Expr{left, low, high}}, negated), nil
	case p.acceptKeyword("REGEXP"):
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return negate(&Expr{Kind: KindOperator, Op: "regexp", Args: []*Expr{left, right}}, negated), nil
	case p.acceptKeyword("IS"):
		isNot := p.acceptKeyword("NOT")
		if !p.acceptKeyword("NULL") {
			return nil, p.errorf(p.peek(), "expected NULL after IS")
		}
		op := "is"
		if isNot {
			op = "is_not"
		}
		return &Expr{Kind: KindOperator, Op: op, Args: []*Expr{left, {Kind: KindLiteral, Literal: nil}}}, nil
	}

	return left, nil
}

func negate(e *Expr, negated bool) *Expr {
	if !negated {
		return e
	}
	return &Expr{Kind: KindOperator, Op: "not", Args: []*Expr{e}}
}

func (p *parser) acceptOperator(op string) bool {
	t := p.peek()
	if t.kind == tokOperator && t.text == op {
		p.idx++
		return true
	}
	return false
}

func (p *parser) parseAdditive() (*Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind == tokOperator && (t.text == "+" || t.text == "-") {
			p.idx++
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &Expr{Kind: KindOperator, Op: t.text, Args: []*Expr{left, right}}
			continue
		}
		return left, nil
	}
}

func (p *parser) parseMultiplicative() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if (t.kind == tokOperator && (t.text == "/" || t.text == "%")) || t.kind == tokStar {
			p.idx++
			op := t.text
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &Expr{Kind: KindOperator, Op: op, Args: []*Expr{left, right}}
			continue
		}
		return left, nil
	}
}

func (p *parser) parseUnary() (*Expr, error) {
	t := p.peek()
	if t.kind == tokOperator && (t.text == "-" || t.text == "+" || t.text == "!") {
		p.idx++
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: KindOperator, Op: "u" + t.text, Args: []*Expr{arg}}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.idx++
		if strings.ContainsAny(t.text, ".eE") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, p.errorf(t, "invalid numeric literal %q", t.text)
			}
			return &Expr{Kind: KindLiteral, Literal: f}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid numeric literal %q", t.text)
		}
		return &Expr{Kind: KindLiteral, Literal: n}, nil
	case tokString:
		p.idx++
		return &Expr{Kind: KindLiteral, Literal: t.text}, nil
	case tokColon:
		p.idx++
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		pos, ok := p.placeholders[name]
		if !ok {
			pos = len(p.placeholders)
			p.placeholders[name] = pos
		}
		return &Expr{Kind: KindPlaceholder, Placeholder: name, Position: pos}, nil
	case tokLParen:
		p.idx++
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return e, nil
	case tokDollar:
		if p.tableMode {
			return nil, p.errorf(t, "document paths are not valid in table mode")
		}
		ident, err := p.parseIdentPath()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: KindIdent, Ident: ident}, nil
	case tokIdent:
		switch strings.ToUpper(t.text) {
		case "TRUE":
			p.idx++
			return &Expr{Kind: KindLiteral, Literal: true}, nil
		case "FALSE":
			p.idx++
			return &Expr{Kind: KindLiteral, Literal: false}, nil
		case "NULL":
			p.idx++
			return &Expr{Kind: KindLiteral, Literal: nil}, nil
		}
		if p.idx+1 < len(p.tokens) && p.tokens[p.idx+1].kind == tokLParen {
			return p.parseFuncCall()
		}
		ident, err := p.parseIdentPath()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: KindIdent, Ident: ident}, nil
	}
	return nil, p.errorf(t, "unexpected token %q", t.text)
}

func (p *parser) parseFuncCall() (*Expr, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen, `"("`); err != nil {
		return nil, err
	}
	call := &Expr{Kind: KindFuncCall, Op: strings.ToLower(name)}
	if p.accept(tokStar) {
		call.Args = append(call.Args, &Expr{Kind: KindIdent, Ident: &Ident{Parts: []string{"*"}}})
	} else if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if !p.accept(tokComma) {
				break
			}
		}
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, err
	}
	return call, nil
}

// parseIdentPath parses an identifier path: "a.b.c" with optional "[n]" array
// index suffixes in document mode, and an optional leading "$." document-root
// prefix. A bare "$" resolves to the document root (an empty path).
func (p *parser) parseIdentPath() (*Ident, error) {
	ident := &Ident{}
	if p.accept(tokDollar) {
		if p.tableMode {
			return nil, p.errorf(p.peek(), "document paths are not valid in table mode")
		}
		if !p.accept(tokDot) {
			return ident, nil
		}
	}
	for {
		part, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		for !p.tableMode && p.accept(tokLBracket) {
			idx, err := p.expect(tokNumber, "array index")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, `"]"`); err != nil {
				return nil, err
			}
			part = part + "[" + idx.text + "]"
		}
		ident.Parts = append(ident.Parts, part)
		if !p.accept(tokDot) {
			break
		}
	}
	return ident, nil
}
