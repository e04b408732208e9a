package expr

import (
	"strconv"
	"strings"
)

type tokenKind uint8

const (
	tEOF tokenKind = iota
	tNum
	tStr
	tIdent
	tVar
	tObjVar
	tPunct
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// is reports whether the token is the given punctuation or
// (case-insensitively) the given keyword.
func (t token) is(s string) bool {
	switch t.kind {
	case tPunct:
		return t.text == s
	case tIdent:
		return strings.EqualFold(t.text, s)
	}
	return false
}

func isLetter(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func lex(src string) ([]token, error) {
	acc := make([]token, 0, len(src)/3+1)
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c):
			j := i
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			if j+1 < len(src) && src[j] == '.' && isDigit(src[j+1]) {
				j++
				for j < len(src) && isDigit(src[j]) {
					j++
				}
			}
			f, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, &SyntaxError{src, i, "bad number"}
			}
			acc = append(acc, token{kind: tNum, text: src[i:j], num: f, pos: i})
			i = j
		case isLetter(c):
			j := i
			for j < len(src) && (isLetter(src[j]) || isDigit(src[j])) {
				j++
			}
			acc = append(acc, token{kind: tIdent, text: src[i:j], pos: i})
			i = j
		case c == '$' || c == '?':
			j := i + 1
			for j < len(src) && (isLetter(src[j]) || isDigit(src[j])) {
				j++
			}
			if j == i+1 {
				return nil, &SyntaxError{src, i, "empty variable name"}
			}
			kind := tVar
			if c == '?' {
				kind = tObjVar
			}
			acc = append(acc, token{kind: kind, text: src[i+1 : j], pos: i})
			i = j
		case c == '\'':
			var b strings.Builder
			j := i + 1
			for {
				if j >= len(src) {
					return nil, &SyntaxError{src, i, "unterminated string"}
				}
				if src[j] == '\'' {
					if j+1 < len(src) && src[j+1] == '\'' {
						b.WriteByte('\'')
						j += 2
						continue
					}
					break
				}
				b.WriteByte(src[j])
				j++
			}
			acc = append(acc, token{kind: tStr, text: b.String(), pos: i})
			i = j + 1
		default:
			if i+1 < len(src) {
				two := src[i : i+2]
				switch two {
				case "<>", "<=", ">=", "||", "!=":
					if two == "!=" {
						two = "<>"
					}
					acc = append(acc, token{kind: tPunct, text: two, pos: i})
					i += 2
					continue
				}
			}
			switch c {
			case '(', ')', ',', ';', '.', ':', '=', '<', '>', '+', '-', '*', '/':
				acc = append(acc, token{kind: tPunct, text: string(c), pos: i})
				i++
			default:
				return nil, &SyntaxError{src, i, "unexpected character " + strconv.QuoteRune(rune(c))}
			}
		}
	}
	acc = append(acc, token{kind: tEOF, pos: len(src)})
	return acc, nil
}
