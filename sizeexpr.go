package imager

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EvalSizeExpr evaluates a style-rule size expression with $v bound to v.
//
// The grammar is deliberately closed: decimal numbers, the $v variable, the
// four arithmetic operators, unary minus, and parentheses. Nothing else
// parses; in particular there is no function call syntax and no way to reach
// host code, replacing the dynamic code generation the rule language grew out
// of.
func EvalSizeExpr(expr string, v float64) (float64, error) {
	p := &exprParser{input: expr, v: v}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("%w: size expression %q: unexpected %q", ErrConfig, expr, p.input[p.pos:])
	}
	return result, nil
}

type exprParser struct {
	input string
	pos   int
	v     float64
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// parseExpr handles + and -.
func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

// parseTerm handles * and /.
func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("%w: size expression %q divides by zero", ErrConfig, p.input)
			}
			left /= right
		default:
			return left, nil
		}
	}
}

// parseFactor handles numbers, $v, parentheses, and unary minus.
func (p *exprParser) parseFactor() (float64, error) {
	switch c := p.peek(); {
	case c == '-':
		p.pos++
		f, err := p.parseFactor()
		return -f, err
	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("%w: size expression %q: missing )", ErrConfig, p.input)
		}
		p.pos++
		return inner, nil
	case c == '$':
		if strings.HasPrefix(p.input[p.pos:], "$v") {
			p.pos += 2
			return p.v, nil
		}
		return 0, fmt.Errorf("%w: size expression %q: unknown variable", ErrConfig, p.input)
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
			p.pos++
		}
		n, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: size expression %q: bad number %q", ErrConfig, p.input, p.input[start:p.pos])
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: size expression %q: unexpected character %q", ErrConfig, p.input, string(c))
	}
}

// StyleRules maps style properties to size expressions. Values containing $v
// are evaluated against the relevant dimension; anything else passes through
// verbatim.
type StyleRules map[string]string

// resolveStyles evaluates every $v rule against v, formatting results as
// pixel values.
func resolveStyles(rules StyleRules, v float64) (map[string]string, error) {
	out := make(map[string]string, len(rules))
	for prop, rule := range rules {
		if !strings.Contains(rule, "$v") {
			out[prop] = rule
			continue
		}
		n, err := EvalSizeExpr(rule, v)
		if err != nil {
			return nil, err
		}
		out[prop] = strconv.FormatFloat(n, 'f', -1, 64) + "px"
	}
	return out, nil
}
