package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/types"
)

// Runtime values are plain Go values: nil, bool, int64, float64, string,
// []any, map[string]any, and *Instance for constructed content blocks and
// callees.

// Truthy reports the boolean interpretation of a value: non-zero numbers,
// non-empty strings and collections, and all instances are true.
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

// Stringify renders a value for text output.
func Stringify(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case string:
		return v, nil
	case []any:
		var b strings.Builder
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			s, err := Stringify(item)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
		b.WriteByte(']')
		return b.String(), nil
	default:
		return "", fmt.Errorf("cannot convert %T to text", v)
	}
}

func binaryOp(opType op.BinaryOpType, left, right any) (any, error) {
	switch opType {
	case op.And:
		if !Truthy(left) {
			return left, nil
		}
		return right, nil
	case op.Or:
		if Truthy(left) {
			return left, nil
		}
		return right, nil
	}
	switch l := left.(type) {
	case int64:
		switch r := right.(type) {
		case int64:
			return intOp(opType, l, r)
		case float64:
			return floatOp(opType, float64(l), r)
		}
	case float64:
		switch r := right.(type) {
		case int64:
			return floatOp(opType, l, float64(r))
		case float64:
			return floatOp(opType, l, r)
		}
	case string:
		if r, ok := right.(string); ok && opType == op.Add {
			return l + r, nil
		}
	}
	return nil, fmt.Errorf("unsupported operation %s between %T and %T", opType, left, right)
}

func intOp(opType op.BinaryOpType, l, r int64) (any, error) {
	switch opType {
	case op.Add:
		return l + r, nil
	case op.Subtract:
		return l - r, nil
	case op.Multiply:
		return l * r, nil
	case op.Divide:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case op.Modulo:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l % r, nil
	default:
		return nil, fmt.Errorf("unsupported int operation %s", opType)
	}
}

func floatOp(opType op.BinaryOpType, l, r float64) (any, error) {
	switch opType {
	case op.Add:
		return l + r, nil
	case op.Subtract:
		return l - r, nil
	case op.Multiply:
		return l * r, nil
	case op.Divide:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	default:
		return nil, fmt.Errorf("unsupported float operation %s", opType)
	}
}

func compareOp(opType op.CompareOpType, left, right any) (bool, error) {
	switch opType {
	case op.Equal:
		return valuesEqual(left, right), nil
	case op.NotEqual:
		return !valuesEqual(left, right), nil
	}
	switch l := left.(type) {
	case int64:
		switch r := right.(type) {
		case int64:
			return orderedCompare(opType, compareInts(l, r))
		case float64:
			return orderedCompare(opType, compareFloats(float64(l), r))
		}
	case float64:
		switch r := right.(type) {
		case int64:
			return orderedCompare(opType, compareFloats(l, float64(r)))
		case float64:
			return orderedCompare(opType, compareFloats(l, r))
		}
	case string:
		if r, ok := right.(string); ok {
			return orderedCompare(opType, strings.Compare(l, r))
		}
	}
	return false, fmt.Errorf("cannot compare %T and %T", left, right)
}

func compareInts(l, r int64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func compareFloats(l, r float64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func orderedCompare(opType op.CompareOpType, cmp int) (bool, error) {
	switch opType {
	case op.LessThan:
		return cmp < 0, nil
	case op.LessThanOrEqual:
		return cmp <= 0, nil
	case op.GreaterThan:
		return cmp > 0, nil
	case op.GreaterThanOrEqual:
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("unsupported comparison %s", opType)
	}
}

func valuesEqual(left, right any) bool {
	// Numeric equality crosses the int/float divide.
	if l, ok := left.(int64); ok {
		if r, ok := right.(float64); ok {
			return float64(l) == r
		}
	}
	if l, ok := left.(float64); ok {
		if r, ok := right.(int64); ok {
			return l == float64(r)
		}
	}
	return left == right
}

func negate(v any) (any, error) {
	switch v := v.(type) {
	case int64:
		return -v, nil
	case float64:
		return -v, nil
	default:
		return nil, fmt.Errorf("cannot negate %T", v)
	}
}

func lengthOf(v any) (int64, error) {
	switch v := v.(type) {
	case string:
		return int64(len(v)), nil
	case []any:
		return int64(len(v)), nil
	case map[string]any:
		return int64(len(v)), nil
	default:
		return 0, fmt.Errorf("%T has no length", v)
	}
}

func subscript(container, key any) (any, error) {
	switch c := container.(type) {
	case []any:
		idx, ok := key.(int64)
		if !ok {
			return nil, fmt.Errorf("list index must be int, got %T", key)
		}
		if idx < 0 || idx >= int64(len(c)) {
			return nil, fmt.Errorf("list index %d out of range (length %d)", idx, len(c))
		}
		return c[idx], nil
	case map[string]any:
		k, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("map key must be string, got %T", key)
		}
		return c[k], nil
	default:
		return nil, fmt.Errorf("cannot index %T", container)
	}
}

// iterator yields the elements of a container. Iterators live on the operand
// stack during loops and are persisted with it across suspensions.
type iterator interface {
	next() (any, bool)
}

type listIter struct {
	items []any
	pos   int
}

func (it *listIter) next() (any, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	v := it.items[it.pos]
	it.pos++
	return v, true
}

// mapIter yields map keys in sorted order so iteration is deterministic.
type mapIter struct {
	keys []string
	pos  int
}

func (it *mapIter) next() (any, bool) {
	if it.pos >= len(it.keys) {
		return nil, false
	}
	v := it.keys[it.pos]
	it.pos++
	return v, true
}

func getIter(v any) (iterator, error) {
	switch v := v.(type) {
	case []any:
		return &listIter{items: v}, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return &mapIter{keys: keys}, nil
	default:
		return nil, fmt.Errorf("cannot iterate %T", v)
	}
}

// valueMatches reports whether a runtime value inhabits the given static
// type. Collections are checked shallowly.
func valueMatches(v any, t types.Type) bool {
	if t.Kind() == types.Any {
		return true
	}
	if v == nil {
		return t.IsNullable() || t.Kind() == types.Null
	}
	switch v.(type) {
	case bool:
		return t.Kind() == types.Bool
	case int64:
		return t.Kind() == types.Int
	case float64:
		return t.Kind() == types.Float
	case string:
		return t.Kind() == types.String
	case []any:
		return t.Kind() == types.List
	case map[string]any:
		return t.Kind() == types.Map
	case *Instance:
		return t.Kind() == types.Content
	default:
		return false
	}
}
