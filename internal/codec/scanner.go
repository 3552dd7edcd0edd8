package codec

import (
	"fmt"
	"strconv"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokNil
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokEquals
	tokComma
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokTrue:
		return "true"
	case tokFalse:
		return "false"
	case tokNil:
		return "nil"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokEquals:
		return "'='"
	case tokComma:
		return "','"
	default:
		return "unknown token"
	}
}

// token is a single lexical unit. text holds the decoded value for strings
// and the raw literal for numbers.
type token struct {
	kind tokenKind
	text string
	pos  int
}

// scanner splits input into tokens. Whitespace between tokens, including
// line breaks introduced by transports that rewrap text, is skipped; bytes
// inside string literals are never touched.
type scanner struct {
	input string
	pos   int
}

func (sc *scanner) next() (token, error) {
	sc.skipSpace()
	start := sc.pos
	if sc.pos >= len(sc.input) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := sc.input[sc.pos]
	switch {
	case c == '{':
		sc.pos++
		return token{kind: tokLBrace, pos: start}, nil
	case c == '}':
		sc.pos++
		return token{kind: tokRBrace, pos: start}, nil
	case c == '[':
		sc.pos++
		return token{kind: tokLBracket, pos: start}, nil
	case c == ']':
		sc.pos++
		return token{kind: tokRBracket, pos: start}, nil
	case c == '=':
		sc.pos++
		return token{kind: tokEquals, pos: start}, nil
	case c == ',':
		sc.pos++
		return token{kind: tokComma, pos: start}, nil
	case c == '"':
		return sc.scanString()
	case c == '-' || c == '+' || isDigit(c):
		return sc.scanNumber()
	case isAlpha(c):
		return sc.scanIdent()
	default:
		return token{}, &ParseError{Offset: start, Message: fmt.Sprintf("unexpected character %q", c)}
	}
}

func (sc *scanner) skipSpace() {
	for sc.pos < len(sc.input) {
		switch sc.input[sc.pos] {
		case ' ', '\t', '\r', '\n':
			sc.pos++
		default:
			return
		}
	}
}

func (sc *scanner) scanString() (token, error) {
	start := sc.pos
	sc.pos++ // opening quote
	for sc.pos < len(sc.input) {
		switch sc.input[sc.pos] {
		case '\\':
			sc.pos += 2
		case '"':
			sc.pos++
			raw := sc.input[start:sc.pos]
			decoded, err := strconv.Unquote(raw)
			if err != nil {
				return token{}, &ParseError{Offset: start, Message: "invalid string escape"}
			}
			return token{kind: tokString, text: decoded, pos: start}, nil
		default:
			sc.pos++
		}
	}
	return token{}, &ParseError{Offset: start, Message: "unterminated string"}
}

func (sc *scanner) scanNumber() (token, error) {
	start := sc.pos
	if c := sc.input[sc.pos]; c == '-' || c == '+' {
		sc.pos++
	}
	digits := 0
	for sc.pos < len(sc.input) {
		c := sc.input[sc.pos]
		switch {
		case isDigit(c):
			digits++
			sc.pos++
		case c == '.':
			sc.pos++
		case c == 'e' || c == 'E':
			sc.pos++
			if sc.pos < len(sc.input) && (sc.input[sc.pos] == '+' || sc.input[sc.pos] == '-') {
				sc.pos++
			}
		default:
			goto done
		}
	}
done:
	if digits == 0 {
		return token{}, &ParseError{Offset: start, Message: "malformed number"}
	}
	return token{kind: tokNumber, text: sc.input[start:sc.pos], pos: start}, nil
}

func (sc *scanner) scanIdent() (token, error) {
	start := sc.pos
	for sc.pos < len(sc.input) && isAlpha(sc.input[sc.pos]) {
		sc.pos++
	}
	switch word := sc.input[start:sc.pos]; word {
	case "true":
		return token{kind: tokTrue, pos: start}, nil
	case "false":
		return token{kind: tokFalse, pos: start}, nil
	case "nil":
		return token{kind: tokNil, pos: start}, nil
	default:
		return token{}, &ParseError{Offset: start, Message: fmt.Sprintf("unknown identifier %q", word)}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
