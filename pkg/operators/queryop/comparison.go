package queryop

import (
	"fmt"
	"regexp"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

// compileEq matches equal values. An array field also matches when any
// element, or any element of its nested arrays up to depth, is equal.
// Null matches missing fields.
func compileEq(value interface{}, depth int, ctx *core.Context) (matcher, error) {
	return func(lhs interface{}) (bool, error) {
		return eq(lhs, value, depth), nil
	}, nil
}

func eq(a, b interface{}, depth int) bool {
	if document.Equal(a, b) {
		return true
	}
	if document.IsNil(a) && document.IsNil(b) {
		return true
	}
	arr, ok := a.([]interface{})
	if !ok {
		return false
	}
	for _, item := range arr {
		if document.Equal(item, b) {
			return true
		}
	}
	for _, item := range document.Flatten(arr, depth) {
		if document.Equal(item, b) {
			return true
		}
	}
	return false
}

func compileIn(value interface{}, depth int, ctx *core.Context) (matcher, error) {
	values, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: $in and $nin need an array, got %T", core.ErrInvalidArgument, value)
	}
	var patterns []*regexp.Regexp
	hasNull := false
	for _, v := range values {
		switch x := v.(type) {
		case *regexp.Regexp:
			patterns = append(patterns, x)
		case nil:
			hasNull = true
		}
	}
	hash := ctx.Options().HashFunction

	return func(lhs interface{}) (bool, error) {
		if document.IsNil(lhs) {
			return hasNull, nil
		}
		candidates := document.EnsureArray(lhs)
		common, err := document.Intersection([][]interface{}{candidates, values}, hash)
		if err != nil {
			return false, err
		}
		if len(common) > 0 {
			return true, nil
		}
		for _, re := range patterns {
			for _, c := range candidates {
				if s, ok := c.(string); ok && re.MatchString(s) {
					return true, nil
				}
			}
		}
		return false, nil
	}, nil
}

// compileCompare matches when any value of the field has the type of the
// argument and compares as accepted by ok
func compileCompare(ok func(int) bool) compiler {
	return func(value interface{}, depth int, ctx *core.Context) (matcher, error) {
		typ := document.TypeOf(value)
		return func(lhs interface{}) (bool, error) {
			for _, x := range document.EnsureArray(lhs) {
				if document.TypeOf(x) == typ && ok(document.Compare(x, value)) {
					return true, nil
				}
			}
			return false, nil
		}, nil
	}
}
