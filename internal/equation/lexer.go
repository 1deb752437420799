package equation

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokCommand // backslash command, text without the backslash
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokPrime
	tokUnderscore
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
)

var tokenNames = map[tokenKind]string{
	tokEOF:        "end of input",
	tokNumber:     "number",
	tokIdent:      "identifier",
	tokCommand:    "command",
	tokPlus:       "'+'",
	tokMinus:      "'-'",
	tokStar:       "'*'",
	tokSlash:      "'/'",
	tokCaret:      "'^'",
	tokPrime:      "'''",
	tokUnderscore: "'_'",
	tokLParen:     "'('",
	tokRParen:     "')'",
	tokLBrace:     "'{'",
	tokRBrace:     "'}'",
	tokLBracket:   "'['",
	tokRBracket:   "']'",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	text string
	col  int // 1-based column in the source line
}

func (t token) String() string {
	switch t.kind {
	case tokNumber, tokIdent:
		return fmt.Sprintf("%s %q", t.kind, t.text)
	case tokCommand:
		return fmt.Sprintf(`command "\%s"`, t.text)
	}
	return t.kind.String()
}

var single = map[rune]tokenKind{
	'+':  tokPlus,
	'-':  tokMinus,
	'*':  tokStar,
	'/':  tokSlash,
	'^':  tokCaret,
	'\'': tokPrime,
	'_':  tokUnderscore,
	'(':  tokLParen,
	')':  tokRParen,
	'{':  tokLBrace,
	'}':  tokRBrace,
	'[':  tokLBracket,
	']':  tokRBracket,
}

// lex splits src into tokens. offset is added to every column so errors
// point into the full equation line.
func lex(src string, line, offset int) ([]token, error) {
	rs := []rune(src)
	var toks []token
	for i := 0; i < len(rs); {
		r := rs[i]
		col := offset + i + 1
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := scanNumber(rs, i)
			toks = append(toks, token{kind: tokNumber, text: string(rs[i:j]), col: col})
			i = j
		case isLetter(r):
			j := i + 1
			for j < len(rs) && (isLetter(rs[j]) || unicode.IsDigit(rs[j])) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[i:j]), col: col})
			i = j
		case r == '\\':
			j := i + 1
			for j < len(rs) && isLetter(rs[j]) {
				j++
			}
			if j == i+1 {
				// \, \; \! and friends are spacing
				if j < len(rs) && strings.ContainsRune(",;:! ", rs[j]) {
					i = j + 1
					continue
				}
				return nil, &SyntaxError{Line: line, Col: col, Msg: "expected command name after '\\'"}
			}
			toks = append(toks, token{kind: tokCommand, text: string(rs[i+1 : j]), col: col})
			i = j
		default:
			k, ok := single[r]
			if !ok {
				return nil, &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf("unexpected character %q", r)}
			}
			toks = append(toks, token{kind: k, text: string(r), col: col})
			i++
		}
	}
	return append(toks, token{kind: tokEOF, col: offset + len(rs) + 1}), nil
}

func isLetter(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}

// scanNumber returns the end of the number starting at i: digits, an
// optional fraction and an optional exponent such as 1e-3.
func scanNumber(rs []rune, i int) int {
	j := i
	for j < len(rs) && unicode.IsDigit(rs[j]) {
		j++
	}
	if j < len(rs) && rs[j] == '.' {
		j++
		for j < len(rs) && unicode.IsDigit(rs[j]) {
			j++
		}
	}
	if j < len(rs) && (rs[j] == 'e' || rs[j] == 'E') {
		k := j + 1
		if k < len(rs) && (rs[k] == '+' || rs[k] == '-') {
			k++
		}
		if k < len(rs) && unicode.IsDigit(rs[k]) {
			for k < len(rs) && unicode.IsDigit(rs[k]) {
				k++
			}
			j = k
		}
	}
	return j
}
