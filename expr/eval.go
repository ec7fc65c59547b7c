package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// A Context carries the data an expression is evaluated against.
// The zero value is a valid, empty context.
type Context struct {
	Variables map[string]any // Process instance variables, addressable via `variables.` or `${}` interpolation.
	Token     any            // Token that triggered the evaluation.
	Instance  any            // Enclosing process instance.
	Task      any            // Related work item, if any.
	User      any            // Acting user, if any.
	Ext       map[string]any // Arbitrary extension values, addressable by name.
}

// scope resolves identifiers during an evaluation.
type scope struct {
	ctx       *Context
	functions map[string]Function
}

func (s *scope) resolve(name string) any {
	switch name {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	case "variables":
		if s.ctx.Variables == nil {
			return map[string]any{}
		}
		return s.ctx.Variables
	case "token":
		return s.ctx.Token
	case "instance":
		return s.ctx.Instance
	case "task":
		return s.ctx.Task
	case "user":
		return s.ctx.User
	case "functions":
		return s.functions
	}

	if value, ok := s.ctx.Ext[name]; ok {
		return value
	}

	return nil // undefined
}

func (n numberLit) eval(_ *scope) (any, error) {
	return n.value, nil
}

func (n stringLit) eval(_ *scope) (any, error) {
	return n.value, nil
}

func (n identifier) eval(s *scope) (any, error) {
	return s.resolve(n.name), nil
}

func (n unaryOp) eval(s *scope) (any, error) {
	operand, err := n.operand.eval(s)
	if err != nil {
		return nil, err
	}

	switch n.operator {
	case "!":
		return !isTruthy(operand), nil
	case "-":
		number, err := toNumber(operand)
		if err != nil {
			return nil, err
		}
		return -number, nil
	default:
		return nil, fmt.Errorf("unsupported unary operator %q", n.operator)
	}
}

func (n binaryOp) eval(s *scope) (any, error) {
	left, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}

	// short-circuit
	switch n.operator {
	case "||":
		if isTruthy(left) {
			return true, nil
		}
		right, err := n.right.eval(s)
		if err != nil {
			return nil, err
		}
		return isTruthy(right), nil
	case "&&":
		if !isTruthy(left) {
			return false, nil
		}
		right, err := n.right.eval(s)
		if err != nil {
			return nil, err
		}
		return isTruthy(right), nil
	}

	right, err := n.right.eval(s)
	if err != nil {
		return nil, err
	}

	switch n.operator {
	case "==":
		return looseEquals(left, right), nil
	case "!=":
		return !looseEquals(left, right), nil
	case "<", "<=", ">", ">=":
		return compare(n.operator, left, right)
	case "+":
		if _, ok := left.(string); ok {
			return left.(string) + stringify(right), nil
		}
		if _, ok := right.(string); ok {
			return stringify(left) + right.(string), nil
		}
	}

	a, err := toNumber(left)
	if err != nil {
		return nil, err
	}
	b, err := toNumber(right)
	if err != nil {
		return nil, err
	}

	switch n.operator {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return a / b, nil
	default:
		return nil, fmt.Errorf("unsupported binary operator %q", n.operator)
	}
}

func (n memberAccess) eval(s *scope) (any, error) {
	object, err := n.object.eval(s)
	if err != nil {
		return nil, err
	}
	return member(object, n.property), nil
}

func (n functionCall) eval(s *scope) (any, error) {
	callee, err := n.callee.eval(s)
	if err != nil {
		return nil, err
	}

	fn, ok := callee.(Function)
	if !ok {
		return nil, fmt.Errorf("expression is not callable")
	}

	args := make([]any, len(n.args))
	for i, argNode := range n.args {
		if args[i], err = argNode.eval(s); err != nil {
			return nil, err
		}
	}

	return fn(args...)
}

// member resolves one segment of a dotted path. Missing segments resolve to
// nil instead of raising an error.
func member(object any, property string) any {
	if object == nil {
		return nil
	}

	switch v := object.(type) {
	case map[string]any:
		return v[property]
	case map[string]Function:
		if fn, ok := v[property]; ok {
			return fn
		}
		return nil
	}

	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		value := rv.MapIndex(reflect.ValueOf(property))
		if !value.IsValid() {
			return nil
		}
		return value.Interface()
	case reflect.Struct:
		field := rv.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, property)
		})
		if !field.IsValid() || !field.CanInterface() {
			return nil
		}
		return field.Interface()
	default:
		return nil
	}
}

// isTruthy follows the usual notion of emptiness: nil, false, zero numbers,
// empty strings and empty collections are false.
func isTruthy(value any) bool {
	if value == nil {
		return false
	}

	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

func toNumber(value any) (float64, error) {
	if value == nil {
		return 0, fmt.Errorf("value is not a number: null")
	}

	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		number, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("value is not a number: %q", v)
		}
		return number, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, fmt.Errorf("value is not a number: %v", value)
	}
}

func asNumber(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	if _, ok := value.(bool); ok {
		return 0, false
	}
	if _, ok := value.(string); ok {
		return 0, false
	}

	number, err := toNumber(value)
	return number, err == nil
}

// looseEquals implements the documented coercion table for == and !=:
//
//   - number == number: numeric comparison
//   - string == string: exact comparison
//   - bool == bool: direct comparison
//   - number == numeric string: the string is parsed as a number
//   - null equals only null
//
// Every other combination is unequal.
func looseEquals(left any, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	leftBool, leftIsBool := left.(bool)
	rightBool, rightIsBool := right.(bool)
	if leftIsBool || rightIsBool {
		return leftIsBool && rightIsBool && leftBool == rightBool
	}

	leftNumber, leftIsNumber := asNumber(left)
	rightNumber, rightIsNumber := asNumber(right)

	leftString, leftIsString := left.(string)
	rightString, rightIsString := right.(string)

	switch {
	case leftIsNumber && rightIsNumber:
		return leftNumber == rightNumber
	case leftIsString && rightIsString:
		return leftString == rightString
	case leftIsNumber && rightIsString:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(rightString), 64); err == nil {
			return leftNumber == parsed
		}
		return false
	case leftIsString && rightIsNumber:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(leftString), 64); err == nil {
			return parsed == rightNumber
		}
		return false
	default:
		return false
	}
}

func compare(operator string, left any, right any) (bool, error) {
	var result int

	leftString, leftIsString := left.(string)
	rightString, rightIsString := right.(string)

	if leftIsString && rightIsString {
		result = strings.Compare(leftString, rightString)
	} else {
		a, err := toNumber(left)
		if err != nil {
			return false, err
		}
		b, err := toNumber(right)
		if err != nil {
			return false, err
		}

		switch {
		case a < b:
			result = -1
		case a > b:
			result = 1
		}
	}

	switch operator {
	case "<":
		return result < 0, nil
	case "<=":
		return result <= 0, nil
	case ">":
		return result > 0, nil
	case ">=":
		return result >= 0, nil
	default:
		return false, fmt.Errorf("unsupported comparison operator %q", operator)
	}
}

func stringify(value any) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
