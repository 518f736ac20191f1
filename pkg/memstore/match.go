package memstore

import (
	"fmt"
	"strings"
)

// matches evaluates a normalized filter against doc.
func matches(doc map[string]any, filter map[string]any) (bool, error) {
	for key, cond := range filter {
		var (
			ok  bool
			err error
		)
		switch key {
		case "$and", "$or", "$nor":
			ok, err = matchLogical(doc, key, cond)
		default:
			if strings.HasPrefix(key, "$") {
				return false, fmt.Errorf("unsupported top-level operator %s", key)
			}
			value, present := lookup(doc, key)
			ok, err = matchField(value, present, cond)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchLogical(doc map[string]any, op string, cond any) (bool, error) {
	list, ok := cond.([]any)
	if !ok || len(list) == 0 {
		return false, fmt.Errorf("%s expects a non-empty array", op)
	}
	for _, item := range list {
		sub, ok := item.(map[string]any)
		if !ok {
			return false, fmt.Errorf("%s entries must be documents", op)
		}
		hit, err := matches(doc, sub)
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !hit:
			return false, nil
		case op == "$or" && hit:
			return true, nil
		case op == "$nor" && hit:
			return false, nil
		}
	}
	return op != "$or", nil
}

func operators(cond any) (map[string]any, bool) {
	m, ok := cond.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func matchField(value any, present bool, cond any) (bool, error) {
	ops, ok := operators(cond)
	if !ok {
		return eqOrContains(value, present, cond), nil
	}
	for op, arg := range ops {
		hit, err := matchOp(value, present, op, arg)
		if err != nil || !hit {
			return false, err
		}
	}
	return true, nil
}

// eqOrContains is implicit equality: a missing field equals null and an array
// field matches when any element does.
func eqOrContains(value any, present bool, target any) bool {
	if !present {
		return target == nil
	}
	if equal(value, target) {
		return true
	}
	if arr, ok := value.([]any); ok {
		for _, el := range arr {
			if equal(el, target) {
				return true
			}
		}
	}
	return false
}

func matchOp(value any, present bool, op string, arg any) (bool, error) {
	switch op {
	case "$eq":
		return eqOrContains(value, present, arg), nil
	case "$ne":
		return !eqOrContains(value, present, arg), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false, nil
		}
		candidates := []any{value}
		if arr, ok := value.([]any); ok {
			candidates = arr
		}
		for _, c := range candidates {
			if typeRank(c) != typeRank(arg) || typeRank(c) == 0 {
				continue
			}
			cmp := compare(c, arg)
			if (op == "$gt" && cmp > 0) || (op == "$gte" && cmp >= 0) ||
				(op == "$lt" && cmp < 0) || (op == "$lte" && cmp <= 0) {
				return true, nil
			}
		}
		return false, nil
	case "$in", "$nin":
		list, ok := arg.([]any)
		if !ok {
			return false, fmt.Errorf("%s expects an array", op)
		}
		in := false
		for _, item := range list {
			if eqOrContains(value, present, item) {
				in = true
				break
			}
		}
		return in == (op == "$in"), nil
	case "$exists":
		want, ok := arg.(bool)
		if !ok {
			n, isNum := toFloat(arg)
			if !isNum {
				return false, fmt.Errorf("$exists expects a boolean")
			}
			want = n != 0
		}
		return present == want, nil
	case "$not":
		if _, ok := operators(arg); !ok {
			return false, fmt.Errorf("$not expects an operator document")
		}
		hit, err := matchField(value, present, arg)
		return !hit, err
	case "$size":
		n, ok := toInt64(arg)
		if !ok {
			return false, fmt.Errorf("$size expects an integer")
		}
		arr, isArr := value.([]any)
		return isArr && int64(len(arr)) == n, nil
	}
	return false, fmt.Errorf("unsupported operator %s", op)
}
