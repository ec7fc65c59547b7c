package expr

import (
	"fmt"
	"strconv"
)

// astNode is a parsed expression fragment that can be evaluated against a scope.
type astNode interface {
	eval(s *scope) (any, error)
}

type numberLit struct {
	value float64
}

type stringLit struct {
	value string
}

type identifier struct {
	name string
}

type unaryOp struct {
	operator string
	operand  astNode
}

type binaryOp struct {
	operator string
	left     astNode
	right    astNode
}

type memberAccess struct {
	object   astNode
	property string
}

type functionCall struct {
	callee astNode
	args   []astNode
}

func parse(tokens []token) (astNode, error) {
	p := parser{tokens: tokens}

	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if next := p.peek(); next != nil {
		return nil, fmt.Errorf("unexpected %s", next)
	}

	return root, nil
}

// parser is a recursive descent parser, implementing standard operator
// precedence, from lowest (||) to highest (call and member access).
type parser struct {
	tokens []token
	index  int
}

func (p *parser) peek() *token {
	if p.index < len(p.tokens) {
		return &p.tokens[p.index]
	}
	return nil
}

func (p *parser) next() *token {
	token := p.peek()
	if token != nil {
		p.index++
	}
	return token
}

// acceptOperator consumes the next token if it is one of the given operators.
func (p *parser) acceptOperator(operators ...string) string {
	token := p.peek()
	if token == nil || token.kind != tokenOperator {
		return ""
	}
	for _, operator := range operators {
		if token.value == operator {
			p.index++
			return operator
		}
	}
	return ""
}

func (p *parser) expectOperator(operator string) error {
	token := p.next()
	if token == nil {
		return fmt.Errorf("expected %q, but reached end of expression", operator)
	}
	if token.kind != tokenOperator || token.value != operator {
		return fmt.Errorf("expected %q, but got %s", operator, token)
	}
	return nil
}

func (p *parser) parseExpression() (astNode, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (astNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.acceptOperator("||") != "" {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryOp{operator: "||", left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (astNode, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	for p.acceptOperator("&&") != "" {
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = binaryOp{operator: "&&", left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseEquality() (astNode, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for {
		operator := p.acceptOperator("==", "!=")
		if operator == "" {
			return left, nil
		}

		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = binaryOp{operator: operator, left: left, right: right}
	}
}

func (p *parser) parseComparison() (astNode, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for {
		operator := p.acceptOperator("<=", ">=", "<", ">")
		if operator == "" {
			return left, nil
		}

		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = binaryOp{operator: operator, left: left, right: right}
	}
}

func (p *parser) parseAdditive() (astNode, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		operator := p.acceptOperator("+", "-")
		if operator == "" {
			return left, nil
		}

		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binaryOp{operator: operator, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (astNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		operator := p.acceptOperator("*", "/")
		if operator == "" {
			return left, nil
		}

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryOp{operator: operator, left: left, right: right}
	}
}

func (p *parser) parseUnary() (astNode, error) {
	if operator := p.acceptOperator("!", "-"); operator != "" {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryOp{operator: operator, operand: operand}, nil
	}

	return p.parseCall()
}

// parseCall parses a primary expression, followed by any number of call and
// member access postfixes.
func (p *parser) parseCall() (astNode, error) {
	expression, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		if p.acceptOperator("(") != "" {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expression = functionCall{callee: expression, args: args}
			continue
		}

		if p.acceptOperator(".") != "" {
			token := p.next()
			if token == nil {
				return nil, fmt.Errorf("expected a property name, but reached end of expression")
			}
			if token.kind != tokenIdentifier {
				return nil, fmt.Errorf("expected a property name, but got %s", token)
			}
			expression = memberAccess{object: expression, property: token.value}
			continue
		}

		return expression, nil
	}
}

func (p *parser) parseArgs() ([]astNode, error) {
	var args []astNode

	if p.acceptOperator(")") != "" {
		return args, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.acceptOperator(",") != "" {
			continue
		}

		return args, p.expectOperator(")")
	}
}

func (p *parser) parsePrimary() (astNode, error) {
	token := p.next()
	if token == nil {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	switch token.kind {
	case tokenNumber:
		value, err := strconv.ParseFloat(token.value, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse number %q: %v", token.value, err)
		}
		return numberLit{value: value}, nil
	case tokenString:
		return stringLit{value: token.value}, nil
	case tokenIdentifier:
		return identifier{name: token.value}, nil
	case tokenOperator:
		if token.value == "(" {
			expression, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return expression, p.expectOperator(")")
		}
	}

	return nil, fmt.Errorf("unexpected %s", token)
}
