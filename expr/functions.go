package expr

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// registerBuiltins fills the function table of a new evaluator with string,
// math, array, type check, date and logical functions.
func registerBuiltins(e *Evaluator) {
	builtins := map[string]Function{
		// string
		"upper": func(args ...any) (any, error) {
			s, err := stringArg("upper", args, 0)
			return strings.ToUpper(s), err
		},
		"lower": func(args ...any) (any, error) {
			s, err := stringArg("lower", args, 0)
			return strings.ToLower(s), err
		},
		"trim": func(args ...any) (any, error) {
			s, err := stringArg("trim", args, 0)
			return strings.TrimSpace(s), err
		},
		"concat": func(args ...any) (any, error) {
			var sb strings.Builder
			for _, arg := range args {
				sb.WriteString(stringify(arg))
			}
			return sb.String(), nil
		},
		"contains": func(args ...any) (any, error) {
			s, err := stringArg("contains", args, 0)
			if err != nil {
				return false, err
			}
			substr, err := stringArg("contains", args, 1)
			return strings.Contains(s, substr), err
		},
		"startsWith": func(args ...any) (any, error) {
			s, err := stringArg("startsWith", args, 0)
			if err != nil {
				return false, err
			}
			prefix, err := stringArg("startsWith", args, 1)
			return strings.HasPrefix(s, prefix), err
		},
		"endsWith": func(args ...any) (any, error) {
			s, err := stringArg("endsWith", args, 0)
			if err != nil {
				return false, err
			}
			suffix, err := stringArg("endsWith", args, 1)
			return strings.HasSuffix(s, suffix), err
		},
		"length": func(args ...any) (any, error) {
			s, err := stringArg("length", args, 0)
			return float64(len(s)), err
		},
		"substring": func(args ...any) (any, error) {
			s, err := stringArg("substring", args, 0)
			if err != nil {
				return "", err
			}
			start, err := numberArg("substring", args, 1)
			if err != nil {
				return "", err
			}

			end := float64(len(s))
			if len(args) > 2 {
				if end, err = numberArg("substring", args, 2); err != nil {
					return "", err
				}
			}

			i := clampIndex(start, len(s))
			j := clampIndex(end, len(s))
			if i > j {
				i, j = j, i
			}
			return s[i:j], nil
		},

		// math
		"abs": func(args ...any) (any, error) {
			n, err := numberArg("abs", args, 0)
			return math.Abs(n), err
		},
		"min": func(args ...any) (any, error) {
			return foldNumbers("min", args, math.Min)
		},
		"max": func(args ...any) (any, error) {
			return foldNumbers("max", args, math.Max)
		},
		"round": func(args ...any) (any, error) {
			n, err := numberArg("round", args, 0)
			return math.Round(n), err
		},
		"floor": func(args ...any) (any, error) {
			n, err := numberArg("floor", args, 0)
			return math.Floor(n), err
		},
		"ceil": func(args ...any) (any, error) {
			n, err := numberArg("ceil", args, 0)
			return math.Ceil(n), err
		},

		// array
		"size": func(args ...any) (any, error) {
			if len(args) == 0 || args[0] == nil {
				return float64(0), nil
			}
			rv := reflect.ValueOf(args[0])
			switch rv.Kind() {
			case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
				return float64(rv.Len()), nil
			default:
				return float64(0), fmt.Errorf("size: value has no size")
			}
		},
		"includes": func(args ...any) (any, error) {
			if len(args) < 2 || args[0] == nil {
				return false, nil
			}
			rv := reflect.ValueOf(args[0])
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return false, fmt.Errorf("includes: value is not an array")
			}
			for i := 0; i < rv.Len(); i++ {
				if looseEquals(rv.Index(i).Interface(), args[1]) {
					return true, nil
				}
			}
			return false, nil
		},
		"isEmpty": func(args ...any) (any, error) {
			if len(args) == 0 {
				return true, nil
			}
			return !isTruthy(args[0]), nil
		},

		// type checks
		"isNumber": func(args ...any) (any, error) {
			if len(args) == 0 {
				return false, nil
			}
			_, ok := asNumber(args[0])
			return ok, nil
		},
		"isString": func(args ...any) (any, error) {
			if len(args) == 0 {
				return false, nil
			}
			_, ok := args[0].(string)
			return ok, nil
		},
		"isBool": func(args ...any) (any, error) {
			if len(args) == 0 {
				return false, nil
			}
			_, ok := args[0].(bool)
			return ok, nil
		},
		"isNil": func(args ...any) (any, error) {
			return len(args) == 0 || args[0] == nil, nil
		},
		"isDefined": func(args ...any) (any, error) {
			return len(args) != 0 && args[0] != nil, nil
		},

		// date
		"now": func(args ...any) (any, error) {
			return time.Now().UTC(), nil
		},
		"date": func(args ...any) (any, error) {
			s, err := stringArg("date", args, 0)
			if err != nil {
				return nil, err
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				t, err = time.Parse(time.DateOnly, s)
			}
			if err != nil {
				return nil, fmt.Errorf("date: failed to parse %q", s)
			}
			return t, nil
		},
		"year": func(args ...any) (any, error) {
			t, err := timeArg("year", args)
			return float64(t.Year()), err
		},
		"month": func(args ...any) (any, error) {
			t, err := timeArg("month", args)
			return float64(t.Month()), err
		},
		"day": func(args ...any) (any, error) {
			t, err := timeArg("day", args)
			return float64(t.Day()), err
		},

		// logical
		"and": func(args ...any) (any, error) {
			for _, arg := range args {
				if !isTruthy(arg) {
					return false, nil
				}
			}
			return true, nil
		},
		"or": func(args ...any) (any, error) {
			for _, arg := range args {
				if isTruthy(arg) {
					return true, nil
				}
			}
			return false, nil
		},
		"not": func(args ...any) (any, error) {
			return len(args) == 0 || !isTruthy(args[0]), nil
		},
		"ifElse": func(args ...any) (any, error) {
			if len(args) < 3 {
				return nil, fmt.Errorf("ifElse: expected 3 arguments, but got %d", len(args))
			}
			if isTruthy(args[0]) {
				return args[1], nil
			}
			return args[2], nil
		},
	}

	for name, fn := range builtins {
		e.functions[name] = fn
	}
}

func stringArg(name string, args []any, index int) (string, error) {
	if index >= len(args) {
		return "", fmt.Errorf("%s: expected at least %d arguments, but got %d", name, index+1, len(args))
	}
	if s, ok := args[index].(string); ok {
		return s, nil
	}
	return stringify(args[index]), nil
}

func numberArg(name string, args []any, index int) (float64, error) {
	if index >= len(args) {
		return 0, fmt.Errorf("%s: expected at least %d arguments, but got %d", name, index+1, len(args))
	}
	n, err := toNumber(args[index])
	if err != nil {
		return 0, fmt.Errorf("%s: %v", name, err)
	}
	return n, nil
}

func timeArg(name string, args []any) (time.Time, error) {
	if len(args) == 0 {
		return time.Now().UTC(), nil
	}
	if t, ok := args[0].(time.Time); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s: value is not a date", name)
}

func clampIndex(index float64, length int) int {
	i := int(index)
	if i < 0 {
		i = 0
	}
	if i > length {
		i = length
	}
	return i
}

func foldNumbers(name string, args []any, fold func(float64, float64) float64) (float64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s: expected at least 1 argument", name)
	}

	result, err := numberArg(name, args, 0)
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(args); i++ {
		n, err := numberArg(name, args, i)
		if err != nil {
			return 0, err
		}
		result = fold(result, n)
	}
	return result, nil
}
