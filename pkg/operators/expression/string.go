package expression

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

var stringOperators = map[string]core.ExpressionFunc{
	"$concat":     concat,
	"$indexOfCP":  indexOfCP,
	"$ltrim":      trim("$ltrim", true, false),
	"$rtrim":      trim("$rtrim", false, true),
	"$trim":       trim("$trim", true, true),
	"$split":      split,
	"$strcasecmp": strcasecmp,
	"$strLenCP":   strLenCP,
	"$substr":     substrCP,
	"$substrCP":   substrCP,
	"$toLower":    changeCase(strings.ToLower),
	"$toUpper":    changeCase(strings.ToUpper),
	"$regexMatch": regexMatch,
}

func toString(op string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s needs a string, got %T", core.ErrInvalidArgument, op, v)
	}
	return s, nil
}

func concat(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, v := range vals {
		if document.IsNil(v) {
			return nil, nil
		}
		s, err := toString("$concat", v)
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

func indexOfCP(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsRange("$indexOfCP", 2, 4, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(vals[0]) {
		return nil, nil
	}
	s, err := toString("$indexOfCP", vals[0])
	if err != nil {
		return nil, err
	}
	sub, err := toString("$indexOfCP", vals[1])
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	start, end := 0, len(runes)
	if len(vals) > 2 {
		if start, err = index("$indexOfCP", vals[2]); err != nil {
			return nil, err
		}
	}
	if len(vals) > 3 {
		if end, err = index("$indexOfCP", vals[3]); err != nil {
			return nil, err
		}
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start > end {
		return int64(-1), nil
	}
	pos := strings.Index(string(runes[start:end]), sub)
	if pos < 0 {
		return int64(-1), nil
	}
	return int64(start + utf8.RuneCountInString(string(runes[start:end])[:pos])), nil
}

func index(op string, v interface{}) (int, error) {
	n, ok := document.ToInt64(v)
	if !ok || !document.IsInteger(v) || n < 0 {
		return 0, fmt.Errorf("%w: %s index must be a non-negative integer, got %v", core.ErrInvalidArgument, op, v)
	}
	return int(n), nil
}

// trim removes whitespace, or the given characters, from either end
func trim(op string, left, right bool) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		m, err := object(op, expr, "input")
		if err != nil {
			return nil, err
		}
		input, err := compute(obj, m["input"], ctx)
		if err != nil {
			return nil, err
		}
		if document.IsNil(input) {
			return nil, nil
		}
		s, err := toString(op, input)
		if err != nil {
			return nil, err
		}

		cut := unicode.IsSpace
		if charsExpr, ok := m["chars"]; ok {
			chars, err := compute(obj, charsExpr, ctx)
			if err != nil {
				return nil, err
			}
			set, err := toString(op, chars)
			if err != nil {
				return nil, err
			}
			cut = func(r rune) bool { return strings.ContainsRune(set, r) }
		}
		if left {
			s = strings.TrimLeftFunc(s, cut)
		}
		if right {
			s = strings.TrimRightFunc(s, cut)
		}
		return s, nil
	}
}

func split(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$split", 2, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(vals[0]) {
		return nil, nil
	}
	s, err := toString("$split", vals[0])
	if err != nil {
		return nil, err
	}
	sep, err := toString("$split", vals[1])
	if err != nil {
		return nil, err
	}
	if sep == "" {
		return nil, fmt.Errorf("%w: $split delimiter must not be empty", core.ErrInvalidArgument)
	}
	parts := strings.Split(s, sep)
	out := make([]interface{}, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func strcasecmp(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$strcasecmp", 2, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	a, _ := vals[0].(string)
	b, _ := vals[1].(string)
	return int64(strings.Compare(strings.ToUpper(a), strings.ToUpper(b))), nil
}

func strLenCP(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$strLenCP", 1, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	s, err := toString("$strLenCP", vals[0])
	if err != nil {
		return nil, err
	}
	return int64(utf8.RuneCountInString(s)), nil
}

// substrCP takes [string, start, count] in code points. A negative count
// runs to the end of the string.
func substrCP(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$substrCP", 3, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(vals[0]) {
		return "", nil
	}
	s, err := toString("$substrCP", vals[0])
	if err != nil {
		return nil, err
	}
	start, ok1 := document.ToInt64(vals[1])
	count, ok2 := document.ToInt64(vals[2])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: $substrCP start and count must be numbers", core.ErrInvalidArgument)
	}

	runes := []rune(s)
	n := int64(len(runes))
	if start < 0 || start >= n {
		return "", nil
	}
	end := start + count
	if count < 0 || end > n {
		end = n
	}
	return string(runes[start:end]), nil
}

func changeCase(fn func(string) string) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		vals, err := argsN("$toLower/$toUpper", 1, obj, expr, ctx)
		if err != nil {
			return nil, err
		}
		if document.IsNil(vals[0]) {
			return "", nil
		}
		s, ok := vals[0].(string)
		if !ok {
			s = fmt.Sprint(vals[0])
		}
		return fn(s), nil
	}
}

func regexMatch(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$regexMatch", expr, "input", "regex")
	if err != nil {
		return nil, err
	}
	input, err := compute(obj, m["input"], ctx)
	if err != nil {
		return nil, err
	}
	pattern, err := compute(obj, m["regex"], ctx)
	if err != nil {
		return nil, err
	}
	var options string
	if o, ok := m["options"]; ok {
		v, err := compute(obj, o, ctx)
		if err != nil {
			return nil, err
		}
		options, _ = v.(string)
	}
	if document.IsNil(input) {
		return false, nil
	}
	s, err := toString("$regexMatch", input)
	if err != nil {
		return nil, err
	}
	re, err := query.CompileRegex(pattern, options)
	if err != nil {
		return nil, err
	}
	return re.MatchString(s), nil
}
