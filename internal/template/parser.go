package template

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/netx"
)

var (
	ErrSyntax       = errors.New("template syntax error")
	ErrNoResponse   = errors.New("function needs a response")
	ErrNoMatch      = errors.New("no match")
	ErrBadArguments = errors.New("bad arguments")
)

// Context holds the values placeholders are evaluated against. Response is
// nil while the request is being built. A Context belongs to one upload and
// is not safe for concurrent use.
type Context struct {
	Input    models.Input
	Response *netx.ResponseInfo

	keyUsed bool
}

// KeyReferenced reports whether any template evaluated against c expanded
// {key}, including nested uses such as {base64:{key}}.
func (c *Context) KeyReferenced() bool {
	return c.keyUsed
}

// Func evaluates one placeholder.
type Func func(c *Context, args []string) (string, error)

// Escaper transforms placeholder output before it is inserted into the
// surrounding text. Output of nested placeholders is not escaped.
type Escaper func(string) string

// Parser evaluates templates. The zero value is not usable; use NewParser.
type Parser struct {
	funcs map[string]Func
	now   func() time.Time
}

func NewParser() *Parser {
	p := &Parser{now: time.Now}
	p.funcs = map[string]Func{
		"filename":    fnFileName,
		"input":       fnInput,
		"key":         fnKey,
		"random":      fnRandom,
		"guid":        fnGUID,
		"base64":      fnBase64,
		"unixtime":    p.fnUnixTime,
		"response":    fnResponse,
		"responseurl": fnResponseURL,
		"header":      fnHeader,
		"json":        fnJSON,
		"xml":         fnXML,
		"regex":       fnRegex,
	}
	return p
}

// Evaluate expands every placeholder in tmpl. esc may be nil.
func (p *Parser) Evaluate(tmpl string, c *Context, esc Escaper) (string, error) {
	if !strings.ContainsAny(tmpl, `{\`) {
		return tmpl, nil
	}
	s := &scanner{p: p, c: c, esc: esc, src: []rune(tmpl)}
	return s.text()
}

type scanner struct {
	p   *Parser
	c   *Context
	esc Escaper
	src []rune
	pos int
}

func isEscapable(r rune) bool {
	return r == '{' || r == '}' || r == '|' || r == '\\'
}

// escaped writes the character after a backslash and advances past both.
func (s *scanner) escaped(b *strings.Builder) {
	if s.pos+1 < len(s.src) && isEscapable(s.src[s.pos+1]) {
		b.WriteRune(s.src[s.pos+1])
		s.pos += 2
		return
	}
	b.WriteRune('\\')
	s.pos++
}

func (s *scanner) text() (string, error) {
	var b strings.Builder
	for s.pos < len(s.src) {
		switch r := s.src[s.pos]; r {
		case '\\':
			s.escaped(&b)
		case '{':
			v, ok, err := s.placeholder(true)
			if err != nil {
				return "", err
			}
			if !ok {
				b.WriteRune('{')
				s.pos++
				continue
			}
			b.WriteString(v)
		default:
			b.WriteRune(r)
			s.pos++
		}
	}
	return b.String(), nil
}

// functionName reads [A-Za-z0-9_]+ after the brace at s.pos and reports
// whether it is a registered function followed by ':' or '}'.
func (s *scanner) functionName() (string, Func, int) {
	i := s.pos + 1
	for i < len(s.src) {
		r := s.src[i]
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			i++
			continue
		}
		break
	}
	if i == s.pos+1 || i >= len(s.src) || (s.src[i] != ':' && s.src[i] != '}') {
		return "", nil, 0
	}
	name := strings.ToLower(string(s.src[s.pos+1 : i]))
	fn, ok := s.p.funcs[name]
	if !ok {
		return "", nil, 0
	}
	return name, fn, i
}

// placeholder evaluates the placeholder starting at s.pos. ok is false when
// the brace does not open a known function; s.pos is then unchanged.
func (s *scanner) placeholder(top bool) (string, bool, error) {
	start := s.pos
	name, fn, end := s.functionName()
	if fn == nil {
		return "", false, nil
	}

	s.pos = end
	var args []string
	if s.src[s.pos] == ':' {
		s.pos++
		var err error
		if args, err = s.arguments(start); err != nil {
			return "", false, err
		}
	} else {
		s.pos++
	}

	v, err := fn(s.c, args)
	if err != nil {
		return "", false, fmt.Errorf("{%s}: %w", name, err)
	}
	if top && s.esc != nil {
		v = s.esc(v)
	}
	return v, true, nil
}

// arguments reads up to the closing brace of the placeholder opened at start.
func (s *scanner) arguments(start int) ([]string, error) {
	var (
		args  []string
		b     strings.Builder
		depth int
	)
	for s.pos < len(s.src) {
		switch r := s.src[s.pos]; r {
		case '\\':
			s.escaped(&b)
		case '{':
			v, ok, err := s.placeholder(false)
			if err != nil {
				return nil, err
			}
			if !ok {
				depth++
				b.WriteRune('{')
				s.pos++
				continue
			}
			b.WriteString(v)
		case '}':
			s.pos++
			if depth > 0 {
				depth--
				b.WriteRune('}')
				continue
			}
			return append(args, b.String()), nil
		case '|':
			s.pos++
			if depth > 0 {
				b.WriteRune('|')
				continue
			}
			args = append(args, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
			s.pos++
		}
	}
	return nil, fmt.Errorf("%w: unclosed placeholder at offset %d", ErrSyntax, start)
}
