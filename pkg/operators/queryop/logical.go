package queryop

import (
	"fmt"
	"regexp"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// compileEach compiles every condition of a logical operator
func compileEach(operator string, value interface{}, ctx *core.Context) ([]*query.Query, error) {
	conditions, ok := value.([]interface{})
	if !ok || len(conditions) == 0 {
		return nil, fmt.Errorf("%w: %s needs a non-empty array", core.ErrInvalidArgument, operator)
	}
	queries := make([]*query.Query, len(conditions))
	for i, c := range conditions {
		m, ok := c.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s entries must be documents, got %T", core.ErrInvalidArgument, operator, c)
		}
		q, err := query.Compile(m, ctx)
		if err != nil {
			return nil, err
		}
		queries[i] = q
	}
	return queries, nil
}

// And matches documents that satisfy every condition
func And(selector string, value interface{}, ctx *core.Context) (core.Predicate, error) {
	queries, err := compileEach("$and", value, ctx)
	if err != nil {
		return nil, err
	}
	return func(obj interface{}) (bool, error) {
		for _, q := range queries {
			ok, err := q.Test(obj)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}, nil
}

// Or matches documents that satisfy at least one condition
func Or(selector string, value interface{}, ctx *core.Context) (core.Predicate, error) {
	queries, err := compileEach("$or", value, ctx)
	if err != nil {
		return nil, err
	}
	return func(obj interface{}) (bool, error) {
		for _, q := range queries {
			ok, err := q.Test(obj)
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

// Nor matches documents that satisfy none of the conditions
func Nor(selector string, value interface{}, ctx *core.Context) (core.Predicate, error) {
	queries, err := compileEach("$nor", value, ctx)
	if err != nil {
		return nil, err
	}
	return func(obj interface{}) (bool, error) {
		for _, q := range queries {
			ok, err := q.Test(obj)
			if err != nil {
				return false, err
			}
			if ok {
				return false, nil
			}
		}
		return true, nil
	}, nil
}

// Not inverts an operator expression or regular expression on a field
func Not(selector string, value interface{}, ctx *core.Context) (core.Predicate, error) {
	switch value.(type) {
	case map[string]interface{}, *regexp.Regexp:
	default:
		return nil, fmt.Errorf("%w: $not needs an operator document or regular expression, got %T", core.ErrInvalidArgument, value)
	}

	cond, err := query.Normalize(value)
	if err != nil {
		return nil, err
	}
	q, err := query.Compile(map[string]interface{}{selector: cond}, ctx)
	if err != nil {
		return nil, err
	}
	return func(obj interface{}) (bool, error) {
		ok, err := q.Test(obj)
		return !ok && err == nil, err
	}, nil
}
