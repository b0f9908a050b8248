package update

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/path"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

var identifier = regexp.MustCompile(`^[a-z]+[a-zA-Z0-9]*$`)

// AllPositional is the identifier of the "$[]" placeholder, which
// matches every element
const AllPositional = "$"

// PathNode is one link of a tokenized update selector. Parent is the
// plain path up to an array filter placeholder, or the whole remaining
// path on the last link. Identifier names the placeholder that follows
// Parent and is empty on the last link.
type PathNode struct {
	Selector   string
	Parent     string
	Identifier string
	Next       *PathNode
}

// TokenizePath splits a selector such as "a.$[x].b.$[].c" at its array
// filter placeholders. It returns the first link and the identifiers
// referenced, in order. "$[]" is reported as AllPositional in the chain
// but is not listed among the identifiers.
func TokenizePath(selector string) (*PathNode, []string, error) {
	begin := strings.Index(selector, ".$[")
	if begin < 0 {
		return &PathNode{Selector: selector, Parent: selector}, nil, nil
	}
	end := strings.Index(selector[begin:], "]")
	if end < 0 {
		return nil, nil, fmt.Errorf("%w: unterminated placeholder in '%s'", ErrInvalidIdentifier, selector)
	}
	end += begin

	child := selector[begin+3 : end]
	if child != "" && !identifier.MatchString(child) {
		return nil, nil, fmt.Errorf("%w: '%s'", ErrInvalidIdentifier, child)
	}

	node := &PathNode{Selector: selector, Parent: selector[:begin], Identifier: child}
	var idents []string
	if child == "" {
		node.Identifier = AllPositional
	} else {
		idents = append(idents, child)
	}

	if rest := strings.TrimPrefix(selector[end+1:], "."); rest != "" {
		next, more, err := TokenizePath(rest)
		if err != nil {
			return nil, nil, err
		}
		node.Next = next
		idents = append(idents, more...)
	}
	return node, idents, nil
}

// ModifiedPath removes the array filter placeholders from a selector,
// e.g. "items.$[x].qty" becomes "items.qty".
func ModifiedPath(selector string) string {
	parts := path.Split(selector)
	out := parts[:0:0]
	for _, p := range parts {
		if strings.HasPrefix(p, "$[") && strings.HasSuffix(p, "]") {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

// Visit is called by WalkExpression once per selector of an update
// expression. It reports whether the document changed.
type Visit func(value interface{}, node *PathNode, queries map[string]*query.Query) (bool, error)

// WalkExpression calls visit for every selector of expr. The conditions
// of arrayFilters that refer to an identifier used by the selector are
// compiled into one query per identifier. It returns the modified paths
// of the selectors whose visit reported a change.
func WalkExpression(expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context, visit Visit) ([]string, error) {
	var modified []string
	for _, selector := range sortedKeys(expr) {
		node, idents, err := TokenizePath(selector)
		if err != nil {
			return nil, err
		}

		queries := map[string]*query.Query{}
		if len(idents) > 0 {
			conditions := map[string]map[string]interface{}{}
			for _, filter := range arrayFilters {
				for key, cond := range filter {
					for _, id := range idents {
						if key == id || strings.HasPrefix(key, id+".") {
							if conditions[id] == nil {
								conditions[id] = map[string]interface{}{}
							}
							conditions[id][key] = cond
						}
					}
				}
			}
			for id, cond := range conditions {
				q, err := query.Compile(cond, queryContext(ctx))
				if err != nil {
					return nil, err
				}
				queries[id] = q
			}
		}

		changed, err := visit(expr[selector], node, queries)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", selector, err)
		}
		if changed {
			modified = append(modified, ModifiedPath(selector))
		}
	}
	return modified, nil
}

// Mutator changes the value stored under key in container and reports
// whether anything changed
type Mutator func(container interface{}, key string) (bool, error)

// ApplyUpdate runs mutate at the location described by node. A plain link
// is walked with opts. A placeholder link resolves its parent to an
// array and recurses into the elements that satisfy the identifier's
// query; elements of "$[]" or of an identifier without a filter all
// qualify. The result reports whether any element changed.
func ApplyUpdate(obj interface{}, node *PathNode, queries map[string]*query.Query, mutate Mutator, opts path.WalkOptions) (bool, error) {
	if node.Identifier == "" {
		changed := false
		err := path.Walk(obj, node.Parent, func(c interface{}, k string) error {
			ok, err := mutate(c, k)
			changed = changed || ok
			return err
		}, opts)
		return changed, err
	}

	arr, ok := path.Resolve(obj, node.Parent).([]interface{})
	if !ok {
		return false, nil
	}
	q := queries[node.Identifier]
	changed := false
	for i, elem := range arr {
		if q != nil {
			matched, err := q.Test(map[string]interface{}{node.Identifier: elem})
			if err != nil {
				return false, err
			}
			if !matched {
				continue
			}
		}
		var ok bool
		var err error
		if node.Next != nil {
			ok, err = ApplyUpdate(elem, node.Next, queries, mutate, opts)
		} else {
			ok, err = mutate(arr, strconv.Itoa(i))
		}
		if err != nil {
			return false, err
		}
		changed = changed || ok
	}
	return changed, nil
}

// queryContext relaxes strict mode for the queries an update compiles
func queryContext(ctx *core.Context) *core.Context {
	opts := ctx.Options().Clone()
	opts.UseStrictMode = false
	return ctx.WithOptions(opts)
}
