package document

import (
	"regexp"
	"time"
)

// CloneMode selects how values are copied when they are written into a
// document.
type CloneMode int

const (
	// CloneNone stores values by reference
	CloneNone CloneMode = iota
	// CloneCopy copies one level of arrays, objects and dates
	CloneCopy
	// CloneFull rebuilds the complete value graph
	CloneFull
)

// String returns the option name of the clone mode
func (m CloneMode) String() string {
	switch m {
	case CloneNone:
		return "none"
	case CloneCopy:
		return "copy"
	case CloneFull:
		return "deep"
	default:
		return "unknown"
	}
}

// Clone copies v according to mode
func Clone(mode CloneMode, v interface{}) (interface{}, error) {
	switch mode {
	case CloneFull:
		return CloneDeep(v)
	case CloneCopy:
		return Copy(v), nil
	default:
		return v, nil
	}
}

// Copy performs a one level copy of arrays, objects, dates and binary
// values. Everything else is returned unchanged.
func Copy(v interface{}) interface{} {
	switch val := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(val))
		copy(out, val)
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	case *time.Time:
		if val == nil {
			return val
		}
		t := *val
		return &t
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	}
	return v
}

// CloneDeep rebuilds arrays, objects, dates, regexps and binary values
// recursively. Cloner implementations are asked for their own copy.
// Self-referencing values yield ErrCycleDetected.
func CloneDeep(v interface{}) (interface{}, error) {
	return cloneDeep(v, visited{})
}

func cloneDeep(v interface{}, refs visited) (interface{}, error) {
	switch val := v.(type) {
	case nil, undefined, missing, bool, string, time.Time, ObjectID:
		// immutable
		return v, nil
	case *time.Time:
		if val == nil {
			return val, nil
		}
		t := *val
		return &t, nil
	case *regexp.Regexp:
		if val == nil {
			return val, nil
		}
		return regexp.MustCompile(val.String()), nil
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	case []interface{}:
		leave, err := refs.enter(val)
		if err != nil {
			return nil, err
		}
		defer leave()
		out := make([]interface{}, len(val))
		for i, item := range val {
			if out[i], err = cloneDeep(item, refs); err != nil {
				return nil, err
			}
		}
		return out, nil
	case map[string]interface{}:
		leave, err := refs.enter(val)
		if err != nil {
			return nil, err
		}
		defer leave()
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if out[k], err = cloneDeep(item, refs); err != nil {
				return nil, err
			}
		}
		return out, nil
	case Cloner:
		leave, err := refs.enter(val)
		if err != nil {
			return nil, err
		}
		defer leave()
		return val.CloneValue(), nil
	}
	return v, nil
}
