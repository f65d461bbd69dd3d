// Package sqlfile splits SQL scripts into statements and runs them against
// a target inside a single transaction.
package sqlfile

import (
	"strings"

	"github.com/leapstack-labs/reetl/pkg/dialect"
)

// Splitter cuts a script on top-level semicolons. Semicolons inside string
// literals, quoted identifiers, comments and dollar-quoted bodies are not
// statement boundaries.
type Splitter struct {
	BackslashEscapes bool
	HashComments     bool
	DollarQuotes     bool
	// DashCommentNeedsSpace requires whitespace, a control character or end
	// of input after -- for it to open a comment.
	DashCommentNeedsSpace bool
}

// SplitterFor returns the splitter matching the lexical rules of d.
func SplitterFor(d *dialect.Dialect) Splitter {
	if d == nil {
		return Splitter{}
	}
	return Splitter{
		BackslashEscapes: d.Script.BackslashEscapes,
		HashComments:     d.Script.HashComments,
		DollarQuotes:     d.Script.DollarQuotes,

		DashCommentNeedsSpace: d.Script.DashCommentNeedsSpace,
	}
}

// Split returns the statements of script in order, trimmed and without the
// terminating semicolon. Fragments holding only whitespace or comments are
// dropped.
func (s Splitter) Split(script string) []string {
	sc := &scanner{input: script}
	sc.readChar()

	var out []string
	start := 0
	hasCode := false

	emit := func(end int) {
		if hasCode {
			if stmt := strings.TrimSpace(script[start:end]); stmt != "" {
				out = append(out, stmt)
			}
		}
		hasCode = false
	}

	for !sc.eof() {
		switch {
		case sc.ch == ';':
			emit(sc.pos)
			sc.readChar()
			start = sc.pos
			continue
		case sc.ch == '-' && sc.peekChar() == '-' && s.dashComment(sc):
			sc.skipLineComment()
			continue
		case sc.ch == '#' && s.HashComments:
			sc.skipLineComment()
			continue
		case sc.ch == '/' && sc.peekChar() == '*':
			sc.skipBlockComment()
			continue
		case sc.ch == '\'':
			sc.skipQuoted('\'', s.BackslashEscapes)
		case sc.ch == '"':
			sc.skipQuoted('"', s.BackslashEscapes)
		case sc.ch == '`':
			sc.skipQuoted('`', false)
		case sc.ch == '$' && s.DollarQuotes:
			if tag, ok := sc.dollarTag(); ok {
				sc.skipDollarQuoted(tag)
			} else {
				sc.readChar()
			}
		case isSpace(sc.ch):
			sc.readChar()
			continue
		default:
			sc.readChar()
		}
		hasCode = true
	}
	emit(len(script))

	return out
}

func (s Splitter) dashComment(sc *scanner) bool {
	if !s.DashCommentNeedsSpace {
		return true
	}
	next := sc.readPos + 1
	return next >= len(sc.input) || sc.input[next] <= ' ' || sc.input[next] == 0x7f
}

type scanner struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

// readChar advances to the next character.
func (s *scanner) readChar() {
	s.pos = s.readPos
	if s.pos >= len(s.input) {
		s.pos = len(s.input)
		s.ch = 0
		return
	}
	s.ch = s.input[s.pos]
	s.readPos = s.pos + 1
}

// peekChar returns the next character without advancing.
func (s *scanner) peekChar() byte {
	if s.readPos >= len(s.input) {
		return 0
	}
	return s.input[s.readPos]
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.input)
}

func (s *scanner) skipLineComment() {
	for !s.eof() && s.ch != '\n' {
		s.readChar()
	}
}

func (s *scanner) skipBlockComment() {
	s.readChar() // skip '/'
	s.readChar() // skip '*'
	for !s.eof() {
		if s.ch == '*' && s.peekChar() == '/' {
			s.readChar()
			s.readChar()
			return
		}
		s.readChar()
	}
}

// skipQuoted consumes a quoted run opened by quote. A doubled quote is an
// escaped quote. Unterminated runs extend to the end of input.
func (s *scanner) skipQuoted(quote byte, backslash bool) {
	s.readChar() // skip opening quote
	for !s.eof() {
		switch {
		case backslash && s.ch == '\\':
			s.readChar()
			s.readChar()
		case s.ch == quote && s.peekChar() == quote:
			s.readChar()
			s.readChar()
		case s.ch == quote:
			s.readChar()
			return
		default:
			s.readChar()
		}
	}
}

// dollarTag reports whether a dollar-quote opener ($$ or $tag$) starts at
// the current position and returns it. Positional parameters ($1) and
// identifiers containing '$' are not openers.
func (s *scanner) dollarTag() (string, bool) {
	if s.pos > 0 && isIdentChar(s.input[s.pos-1]) {
		return "", false
	}
	i := s.pos + 1
	if i < len(s.input) && isDigit(s.input[i]) {
		return "", false
	}
	for i < len(s.input) && isTagChar(s.input[i]) {
		i++
	}
	if i >= len(s.input) || s.input[i] != '$' {
		return "", false
	}
	return s.input[s.pos : i+1], true
}

func (s *scanner) skipDollarQuoted(tag string) {
	for range len(tag) {
		s.readChar()
	}
	end := strings.Index(s.input[s.pos:], tag)
	if end < 0 {
		for !s.eof() {
			s.readChar()
		}
		return
	}
	for range end + len(tag) {
		s.readChar()
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isTagChar(ch byte) bool {
	return ch == '_' || isDigit(ch) || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isIdentChar(ch byte) bool {
	return ch == '$' || isTagChar(ch)
}
