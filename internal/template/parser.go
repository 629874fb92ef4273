// Package template parses report templates with embedded measurement macros
// and renders them with measured values.
//
// A macro has the form
//
//	${group.category.name(param:value,...)[key]}
//
// where the parameter list is optional. No whitespace is allowed inside a
// macro. Everything outside macros is copied
// verbatim.
package template

import (
	"fmt"
	"sort"
	"strings"

	"jbench/internal/benchmark"
)

// Segment is either a Text run or a Macro.
type Segment interface {
	// Source returns the exact input text the segment was parsed from.
	Source() string
	segment()
}

// Text is a literal run copied verbatim to the output.
type Text struct {
	Value string
}

func (t Text) Source() string { return t.Value }
func (Text) segment() {}

// Macro is a reference to one field of a measurement's result.
type Macro struct {
	Measurement benchmark.Measurement
	LocalKey    string
	Raw         string
	Offset      int
}

func (m Macro) Source() string { return m.Raw }
func (Macro) segment() {}

// Template is a parsed template document.
type Template struct {
	Segments []Segment
}

// SyntaxError reports a malformed macro.
type SyntaxError struct {
	Offset int
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Parse splits src into text and macro segments. Any "${" that does not
// start a well-formed macro fails the whole parse. A "$" not followed by
// "{" is literal text.
func Parse(src string) (*Template, error) {
	p := &parser{src: src}
	t := &Template{}

	for p.pos < len(src) {
		i := strings.Index(src[p.pos:], "${")
		if i < 0 {
			t.Segments = append(t.Segments, Text{Value: src[p.pos:]})
			break
		}
		if i > 0 {
			t.Segments = append(t.Segments, Text{Value: src[p.pos : p.pos+i]})
			p.pos += i
		}

		m, err := p.macro()
		if err != nil {
			return nil, err
		}
		t.Segments = append(t.Segments, m)
	}
	return t, nil
}

// Source reassembles the original document.
func (t *Template) Source() string {
	var b strings.Builder
	for _, s := range t.Segments {
		b.WriteString(s.Source())
	}
	return b.String()
}

// Macros returns the macro segments in document order.
func (t *Template) Macros() []Macro {
	var out []Macro
	for _, s := range t.Segments {
		if m, ok := s.(Macro); ok {
			out = append(out, m)
		}
	}
	return out
}

// Measurements returns the distinct measurements referenced by the
// template, sorted by identity key. Macros that differ only in their local
// key share one measurement.
func (t *Template) Measurements() []benchmark.Measurement {
	seen := make(map[string]benchmark.Measurement)
	for _, m := range t.Macros() {
		seen[m.Measurement.Key()] = m.Measurement
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]benchmark.Measurement, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(offset int, format string, args ...any) *SyntaxError {
	line := 1 + strings.Count(p.src[:offset], "\n")
	col := offset + 1
	if nl := strings.LastIndexByte(p.src[:offset], '\n'); nl >= 0 {
		col = offset - nl
	}
	return &SyntaxError{Offset: offset, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) expect(c byte) error {
	if p.pos >= len(p.src) {
		return p.errorf(p.pos, "expected %q, got end of input", c)
	}
	if p.src[p.pos] != c {
		return p.errorf(p.pos, "expected %q, got %q", c, p.src[p.pos])
	}
	p.pos++
	return nil
}

func (p *parser) macro() (Macro, error) {
	start := p.pos
	p.pos += len("${")

	id, err := p.benchmarkID()
	if err != nil {
		return Macro{}, err
	}

	var params []benchmark.Param
	if p.peek() == '(' {
		if params, err = p.params(); err != nil {
			return Macro{}, err
		}
	}

	if err := p.expect('['); err != nil {
		return Macro{}, err
	}
	key, err := p.ident()
	if err != nil {
		return Macro{}, err
	}
	if err := p.expect(']'); err != nil {
		return Macro{}, err
	}
	if err := p.expect('}'); err != nil {
		return Macro{}, err
	}

	return Macro{
		Measurement: benchmark.Measurement{Benchmark: id, Params: params},
		LocalKey:    key,
		Raw:         p.src[start:p.pos],
		Offset:      start,
	}, nil
}

// benchmarkID parses IDENT.IDENT.IDENT.
func (p *parser) benchmarkID() (string, error) {
	start := p.pos
	for i := 0; i < 3; i++ {
		if i > 0 {
			if err := p.expect('.'); err != nil {
				return "", err
			}
		}
		if _, err := p.ident(); err != nil {
			return "", err
		}
	}
	return p.src[start:p.pos], nil
}

func (p *parser) ident() (string, error) {
	start := p.pos
	if !isLetter(p.peek()) {
		if p.pos >= len(p.src) {
			return "", p.errorf(p.pos, "expected identifier, got end of input")
		}
		return "", p.errorf(p.pos, "expected identifier, got %q", p.src[p.pos])
	}
	p.pos++
	for p.pos < len(p.src) && (isLetter(p.src[p.pos]) || isDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
		p.pos++
	}
	return p.src[start:p.pos], nil
}

// params parses "(name:value,...)". "()" yields no parameters. Values run
// up to the next ',' or ')' and cannot be quoted or escaped.
func (p *parser) params() ([]benchmark.Param, error) {
	p.pos++ // (
	if p.peek() == ')' {
		p.pos++
		return nil, nil
	}

	var params []benchmark.Param
	for {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}

		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != ')' {
			p.pos++
		}
		if p.pos == start {
			return nil, p.errorf(p.pos, "empty value for parameter %q", name)
		}
		params = append(params, benchmark.Param{Name: name, Value: p.src[start:p.pos]})

		if p.pos >= len(p.src) {
			return nil, p.errorf(p.pos, "unterminated parameter list")
		}
		if p.src[p.pos] == ')' {
			p.pos++
			return params, nil
		}
		p.pos++ // ,
	}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
