// Package queryop implements the query operators used in filter
// documents: comparison, element, evaluation, array, bitwise and logical
// operators.
package queryop

import (
	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/path"
)

// matcher tests the resolved value of a field
type matcher func(lhs interface{}) (bool, error)

// compiler prepares a matcher for the operator argument. depth is the
// number of array levels the field path may have crossed.
type compiler func(value interface{}, depth int, ctx *core.Context) (matcher, error)

// fieldOperator turns a compiler into a query operator that resolves its
// field with single element arrays unwrapped
func fieldOperator(compile compiler) core.QueryFunc {
	return func(selector string, value interface{}, ctx *core.Context) (core.Predicate, error) {
		depth := len(path.Split(selector)) - 1
		if depth < 1 {
			depth = 1
		}
		match, err := compile(value, depth, ctx)
		if err != nil {
			return nil, err
		}
		return func(obj interface{}) (bool, error) {
			return match(path.Resolve(obj, selector, path.WithUnwrapArray()))
		}, nil
	}
}

// negate inverts a compiler
func negate(compile compiler) compiler {
	return func(value interface{}, depth int, ctx *core.Context) (matcher, error) {
		match, err := compile(value, depth, ctx)
		if err != nil {
			return nil, err
		}
		return func(lhs interface{}) (bool, error) {
			ok, err := match(lhs)
			return !ok, err
		}, nil
	}
}

// Operators returns the built-in query operators by name
func Operators() map[string]core.QueryFunc {
	return map[string]core.QueryFunc{
		"$eq":  fieldOperator(compileEq),
		"$ne":  fieldOperator(negate(compileEq)),
		"$gt":  fieldOperator(compileCompare(func(c int) bool { return c > 0 })),
		"$gte": fieldOperator(compileCompare(func(c int) bool { return c >= 0 })),
		"$lt":  fieldOperator(compileCompare(func(c int) bool { return c < 0 })),
		"$lte": fieldOperator(compileCompare(func(c int) bool { return c <= 0 })),
		"$in":  fieldOperator(compileIn),
		"$nin": fieldOperator(negate(compileIn)),

		"$exists": fieldOperator(compileExists),
		"$type":   fieldOperator(compileType),

		"$mod":   fieldOperator(compileMod),
		"$regex": fieldOperator(compileRegex),

		"$all":       fieldOperator(compileAll),
		"$elemMatch": fieldOperator(compileElemMatch),
		"$size":      fieldOperator(compileSize),

		"$bitsAllClear": fieldOperator(compileBits(bitsAllClear)),
		"$bitsAllSet":   fieldOperator(compileBits(bitsAllSet)),
		"$bitsAnyClear": fieldOperator(compileBits(bitsAnyClear)),
		"$bitsAnySet":   fieldOperator(compileBits(bitsAnySet)),

		"$not":        Not,
		"$and":        And,
		"$or":         Or,
		"$nor":        Nor,
		"$expr":       Expr,
		"$jsonSchema": JSONSchema,
		"$where":      Where,
	}
}

// Register adds the built-in query operators to r
func Register(r *core.Registry) error {
	for name, fn := range Operators() {
		if err := r.Register(core.ClassQuery, name, fn); err != nil {
			return err
		}
	}
	return nil
}
