package expr

import (
	"fmt"
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokenNumber tokenKind = iota + 1
	tokenString
	tokenIdentifier
	tokenOperator
)

func (v tokenKind) String() string {
	switch v {
	case tokenNumber:
		return "NUMBER"
	case tokenString:
		return "STRING"
	case tokenIdentifier:
		return "IDENTIFIER"
	case tokenOperator:
		return "OPERATOR"
	default:
		return ""
	}
}

type token struct {
	kind  tokenKind
	value string
	pos   int
}

func (t token) String() string {
	return fmt.Sprintf("%s %q at position %d", t.kind, t.value, t.pos)
}

// tokenRegexp scans one token at a time. Submatch order determines the token
// kind: number, string, identifier, operator.
var tokenRegexp = regexp.MustCompile(
	`^(?:(\d+(?:\.\d+)?)|("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*')|([A-Za-z_][A-Za-z0-9_]*)|(\|\||&&|==|!=|<=|>=|[-+*/!<>().,]))`,
)

func tokenize(expression string) ([]token, error) {
	var tokens []token

	var pos int
	rest := expression
	for {
		rest = strings.TrimLeft(rest, " \t\n\r")
		pos = len(expression) - len(rest)

		if rest == "" {
			return tokens, nil
		}

		match := tokenRegexp.FindStringSubmatchIndex(rest)
		if match == nil {
			return nil, fmt.Errorf("unexpected character %q at position %d", rest[0], pos)
		}

		kinds := []tokenKind{tokenNumber, tokenString, tokenIdentifier, tokenOperator}
		for i, kind := range kinds {
			start, end := match[2+i*2], match[3+i*2]
			if start == -1 {
				continue
			}

			value := rest[start:end]
			if kind == tokenString {
				value = unquote(value)
			}

			tokens = append(tokens, token{kind: kind, value: value, pos: pos + start})
			break
		}

		rest = rest[match[1]:]
	}
}

// unquote strips the surrounding quotes and resolves escape sequences.
func unquote(value string) string {
	quote := value[0]
	value = value[1 : len(value)-1]

	var sb strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' || i+1 == len(value) {
			sb.WriteByte(c)
			continue
		}

		i++
		switch value[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case quote, '\\':
			sb.WriteByte(value[i])
		default:
			sb.WriteByte('\\')
			sb.WriteByte(value[i])
		}
	}

	return sb.String()
}
