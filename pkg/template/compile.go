package template

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports a malformed template.
type SyntaxError struct {
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template: offset %d: %s", e.Offset, e.Message)
}

type partKind uint8

const (
	partText partKind = iota
	partPath
	partInvoke
)

type part struct {
	kind  partKind
	text  string
	path  Ref
	name  string
	key   Expr
	attrs map[string]Expr
}

// Compiled is a parsed mustache-style template.
type Compiled struct {
	src   string
	parts []part
}

var _ Template = (*Compiled)(nil)

// Compile parses src.
func Compile(src string) (*Compiled, error) {
	c := &Compiled{src: src}
	rest := src
	offset := 0
	for rest != "" {
		open := strings.Index(rest, "{{")
		if open < 0 {
			c.parts = append(c.parts, part{kind: partText, text: rest})
			break
		}
		if open > 0 {
			c.parts = append(c.parts, part{kind: partText, text: rest[:open]})
		}
		end := closeIndex(rest[open+2:])
		if end < 0 {
			return nil, &SyntaxError{Offset: offset + open, Message: "unclosed mustache"}
		}
		inner := rest[open+2 : open+2+end]
		p, err := parseMustache(inner, offset+open+2)
		if err != nil {
			return nil, err
		}
		c.parts = append(c.parts, p)

		consumed := open + 2 + end + 2
		rest = rest[consumed:]
		offset += consumed
	}
	return c, nil
}

// closeIndex returns the index of the "}}" ending a mustache body, skipping
// quoted literals, or -1.
func closeIndex(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '}' && i+1 < len(s) && s[i+1] == '}':
			return i
		}
	}
	return -1
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Compiled {
	c, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return c
}

// Source returns the template text.
func (c *Compiled) Source() string {
	return c.src
}

// Evaluate renders text and collects invocations in template order.
func (c *Compiled) Evaluate(ctx Context) (Output, error) {
	var out Output
	for _, p := range c.parts {
		switch p.kind {
		case partText:
			out.Content = append(out.Content, Text(p.text))
		case partPath:
			v, _ := p.path.Eval(ctx)
			out.Content = append(out.Content, Text(Format(v)))
		case partInvoke:
			inv := Invocation{Component: p.name, Attrs: p.attrs}
			if p.key != nil {
				k, err := p.key.Eval(ctx)
				if err != nil {
					return Output{}, err
				}
				inv.Key = Format(k)
			}
			out.Content = append(out.Content, Slot(len(out.Invocations)))
			out.Invocations = append(out.Invocations, inv)
		}
	}
	return out, nil
}

func parseMustache(inner string, offset int) (part, error) {
	tokens, err := tokenize(inner, offset)
	if err != nil {
		return part{}, err
	}
	if len(tokens) == 0 {
		return part{}, &SyntaxError{Offset: offset, Message: "empty mustache"}
	}

	head := tokens[0]
	if !strings.Contains(head, "-") {
		if len(tokens) > 1 {
			return part{}, &SyntaxError{Offset: offset, Message: fmt.Sprintf("unknown helper %q", head)}
		}
		return part{kind: partPath, path: Ref(head)}, nil
	}

	p := part{kind: partInvoke, name: head, attrs: make(map[string]Expr, len(tokens)-1)}
	for _, tok := range tokens[1:] {
		name, value, ok := strings.Cut(tok, "=")
		if !ok || name == "" || value == "" {
			return part{}, &SyntaxError{Offset: offset, Message: fmt.Sprintf("expected name=value, got %q", tok)}
		}
		expr, err := parseValue(value, offset)
		if err != nil {
			return part{}, err
		}
		if name == "key" {
			p.key = expr
			continue
		}
		if _, dup := p.attrs[name]; dup {
			return part{}, &SyntaxError{Offset: offset, Message: fmt.Sprintf("duplicate attr %q", name)}
		}
		p.attrs[name] = expr
	}
	return p, nil
}

func parseValue(value string, offset int) (Expr, error) {
	switch {
	case len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0]:
		return Lit(value[1 : len(value)-1]), nil
	case strings.HasPrefix(value, "("):
		if !strings.HasSuffix(value, ")") {
			return nil, &SyntaxError{Offset: offset, Message: "unbalanced parenthesis"}
		}
		fields := strings.Fields(value[1 : len(value)-1])
		if len(fields) != 2 || fields[0] != "readonly" {
			return nil, &SyntaxError{Offset: offset, Message: fmt.Sprintf("unsupported subexpression %q", value)}
		}
		return Ref(fields[1]), nil
	case value == "true" || value == "false":
		return Lit(value == "true"), nil
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return Lit(int(n)), nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return Lit(f), nil
	}
	return Ref(value), nil
}

// tokenize splits on whitespace, keeping quoted strings and parenthesised
// subexpressions intact.
func tokenize(s string, offset int) ([]string, error) {
	var tokens []string
	var b strings.Builder
	var quote byte
	depth := 0

	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			b.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
			b.WriteByte(ch)
		case ch == '(':
			depth++
			b.WriteByte(ch)
		case ch == ')':
			depth--
			if depth < 0 {
				return nil, &SyntaxError{Offset: offset + i, Message: "unbalanced parenthesis"}
			}
			b.WriteByte(ch)
		case (ch == ' ' || ch == '\t' || ch == '\n') && depth == 0:
			flush()
		default:
			b.WriteByte(ch)
		}
	}
	if quote != 0 {
		return nil, &SyntaxError{Offset: offset + len(s), Message: "unterminated string"}
	}
	if depth != 0 {
		return nil, &SyntaxError{Offset: offset + len(s), Message: "unbalanced parenthesis"}
	}
	flush()
	return tokens, nil
}
