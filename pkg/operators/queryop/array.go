package queryop

import (
	"fmt"
	"regexp"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// compileAll matches arrays that satisfy every listed query. A query is a
// value, a regular expression or an {$elemMatch: ...} document, and each
// must be matched by at least one element.
func compileAll(value interface{}, depth int, ctx *core.Context) (matcher, error) {
	queries, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: $all needs an array, got %T", core.ErrInvalidArgument, value)
	}

	matchers := make([]matcher, 0, len(queries))
	for _, q := range queries {
		if m, ok := q.(map[string]interface{}); ok {
			if cond, ok := m["$elemMatch"]; ok {
				match, err := compileElemMatch(cond, depth, ctx)
				if err != nil {
					return nil, err
				}
				matchers = append(matchers, match)
				continue
			}
		}
		matchers = append(matchers, anyElement(q))
	}

	return func(lhs interface{}) (bool, error) {
		values, ok := lhs.([]interface{})
		if !ok || len(values) == 0 || len(matchers) == 0 {
			return false, nil
		}
		for _, match := range matchers {
			ok, err := match(values)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}, nil
}

// anyElement matches arrays holding an element equal to q, or matching q
// when it is a regular expression
func anyElement(q interface{}) matcher {
	re, isRegexp := q.(*regexp.Regexp)
	return func(lhs interface{}) (bool, error) {
		for _, v := range lhs.([]interface{}) {
			if isRegexp {
				if s, ok := v.(string); ok && re.MatchString(s) {
					return true, nil
				}
				continue
			}
			if document.Equal(q, v) {
				return true, nil
			}
		}
		return false, nil
	}
}

func compileSize(value interface{}, depth int, ctx *core.Context) (matcher, error) {
	if !document.IsInteger(value) {
		return nil, fmt.Errorf("%w: $size needs an integer, got %v", core.ErrInvalidArgument, value)
	}
	size, _ := document.ToInt64(value)
	return func(lhs interface{}) (bool, error) {
		arr, ok := lhs.([]interface{})
		return ok && int64(len(arr)) == size, nil
	}, nil
}

// isNonBooleanOperator reports whether key is an operator other than the
// logical $and, $or and $nor
func isNonBooleanOperator(key string) bool {
	switch key {
	case "$and", "$or", "$nor":
		return false
	}
	return core.IsOperator(key)
}

// compileElemMatch matches arrays with at least one element satisfying
// the condition. A condition made only of field operators, such as
// {$gt: 5}, applies to the element itself.
func compileElemMatch(value interface{}, depth int, ctx *core.Context) (matcher, error) {
	cond, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: $elemMatch needs a document, got %T", core.ErrInvalidArgument, value)
	}

	const wrapKey = "temp"
	wrap := len(cond) > 0
	for k := range cond {
		if !isNonBooleanOperator(k) {
			wrap = false
			break
		}
	}
	criteria := cond
	if wrap {
		criteria = map[string]interface{}{wrapKey: cond}
	}
	q, err := query.Compile(criteria, ctx)
	if err != nil {
		return nil, err
	}

	return func(lhs interface{}) (bool, error) {
		arr, ok := lhs.([]interface{})
		if !ok {
			return false, nil
		}
		for _, elem := range arr {
			var candidate interface{} = elem
			if wrap {
				candidate = map[string]interface{}{wrapKey: elem}
			}
			ok, err := q.Test(candidate)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}, nil
}
