package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Deserialize parses a single table-literal expression and builds the value
// graph it describes. The operation has two phases with distinct failures:
// syntax problems surface as ParseError, while problems constructing the
// value from a well-formed literal (duplicate keys, out-of-range numbers)
// surface as ExecutionError.
//
// Tables whose keys are exactly the integers 1..N build as []any; every
// other table builds as map[any]any with string or float64 keys. Text is
// never evaluated as code.
func Deserialize(text string) (any, error) {
	p := &parser{sc: &scanner{input: text}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	v, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, &ParseError{Offset: p.tok.pos, Message: fmt.Sprintf("unexpected %s after expression", p.tok.kind)}
	}
	return v, nil
}

type parser struct {
	sc  *scanner
	tok token
}

type tableEntry struct {
	key any // string or float64
	val any
	pos int
}

func (p *parser) advance() error {
	t, err := p.sc.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) parseExpr(depth int) (any, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: literal nesting deeper than %d", ErrRecursion, MaxDepth)
	}

	switch p.tok.kind {
	case tokNil:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return nil, nil
	case tokTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return true, nil
	case tokFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return false, nil
	case tokString:
		s := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return s, nil
	case tokNumber:
		return p.parseNumber()
	case tokLBrace:
		return p.parseTable(depth)
	default:
		return nil, &ParseError{Offset: p.tok.pos, Message: fmt.Sprintf("expected expression, found %s", p.tok.kind)}
	}
}

func (p *parser) parseNumber() (any, error) {
	f, err := strconv.ParseFloat(p.tok.text, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil, &ExecutionError{Offset: p.tok.pos, Message: fmt.Sprintf("number %q out of range", p.tok.text)}
		}
		return nil, &ParseError{Offset: p.tok.pos, Message: fmt.Sprintf("malformed number %q", p.tok.text)}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *parser) parseTable(depth int) (any, error) {
	if err := p.advance(); err != nil { // consume '{'
		return nil, err
	}

	var entries []tableEntry
	for p.tok.kind != tokRBrace {
		if p.tok.kind != tokLBracket {
			return nil, &ParseError{Offset: p.tok.pos, Message: fmt.Sprintf("expected '[' or '}', found %s", p.tok.kind)}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}

		keyPos := p.tok.pos
		var key any
		switch p.tok.kind {
		case tokString:
			key = p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokNumber:
			n, err := p.parseNumber()
			if err != nil {
				return nil, err
			}
			key = n
		default:
			return nil, &ParseError{Offset: p.tok.pos, Message: fmt.Sprintf("expected string or number key, found %s", p.tok.kind)}
		}

		if p.tok.kind != tokRBracket {
			return nil, &ParseError{Offset: p.tok.pos, Message: fmt.Sprintf("expected ']', found %s", p.tok.kind)}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokEquals {
			return nil, &ParseError{Offset: p.tok.pos, Message: fmt.Sprintf("expected '=', found %s", p.tok.kind)}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}

		val, err := p.parseExpr(depth + 1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, tableEntry{key: key, val: val, pos: keyPos})

		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue // trailing comma before '}' is tolerated
		}
		if p.tok.kind != tokRBrace {
			return nil, &ParseError{Offset: p.tok.pos, Message: fmt.Sprintf("expected ',' or '}', found %s", p.tok.kind)}
		}
	}
	if err := p.advance(); err != nil { // consume '}'
		return nil, err
	}
	return buildTable(entries)
}

// buildTable is the construction phase: it turns parsed entries into a
// slice or mapping without any code evaluation.
func buildTable(entries []tableEntry) (any, error) {
	seen := make(map[any]bool, len(entries))
	for _, e := range entries {
		if seen[e.key] {
			return nil, &ExecutionError{Offset: e.pos, Message: fmt.Sprintf("duplicate key %v", e.key)}
		}
		seen[e.key] = true
	}

	// A table keyed by exactly 1..N is an array.
	isArray := len(entries) > 0
	maxN := 0
	for _, e := range entries {
		n, ok := e.key.(float64)
		if !ok || n < 1 || n > math.MaxInt32 || n != math.Trunc(n) {
			isArray = false
			break
		}
		if int(n) > maxN {
			maxN = int(n)
		}
	}
	if isArray && maxN == len(entries) {
		arr := make([]any, maxN)
		for _, e := range entries {
			arr[int(e.key.(float64))-1] = e.val
		}
		return arr, nil
	}

	m := make(map[any]any, len(entries))
	for _, e := range entries {
		m[e.key] = e.val
	}
	return m, nil
}
