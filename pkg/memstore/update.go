package memstore

import (
	"fmt"
	"strings"
)

// applyUpdate mutates doc in place and reports whether anything changed.
// An update without operators is treated as $set.
func applyUpdate(doc map[string]any, update map[string]any) (bool, error) {
	if !hasOperators(update) {
		update = map[string]any{"$set": update}
	}
	before := clone(doc)
	for op, arg := range update {
		fields, ok := arg.(map[string]any)
		if !ok {
			return false, fmt.Errorf("%s expects a document", op)
		}
		for path, v := range fields {
			if path == "_id" {
				if cur := doc["_id"]; op != "$set" || !equal(cur, v) {
					return false, fmt.Errorf("field _id is immutable")
				}
			}
			if err := applyOp(doc, op, path, v); err != nil {
				return false, err
			}
		}
	}
	return !equal(before, doc), nil
}

func applyOp(doc map[string]any, op, path string, v any) error {
	switch op {
	case "$set":
		setPath(doc, path, normalize(v))
	case "$unset":
		deletePath(doc, path)
	case "$inc":
		cur, present := lookup(doc, path)
		if !present {
			cur = int64(0)
		}
		sum, err := add(cur, v)
		if err != nil {
			return fmt.Errorf("$inc on %s: %w", path, err)
		}
		setPath(doc, path, sum)
	case "$push":
		cur, present := lookup(doc, path)
		if !present {
			setPath(doc, path, []any{normalize(v)})
			return nil
		}
		arr, ok := cur.([]any)
		if !ok {
			return fmt.Errorf("$push on %s: field is not an array", path)
		}
		setPath(doc, path, append(arr, normalize(v)))
	default:
		return fmt.Errorf("unsupported update operator %s", op)
	}
	return nil
}

func hasOperators(update map[string]any) bool {
	for k := range update {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func add(a, b any) (any, error) {
	ia, aInt := toInt64(a)
	ib, bInt := toInt64(b)
	if aInt && bInt {
		return ia + ib, nil
	}
	fa, ok := toFloat(a)
	if !ok {
		return nil, fmt.Errorf("non-numeric value %v", a)
	}
	fb, ok := toFloat(b)
	if !ok {
		return nil, fmt.Errorf("non-numeric increment %v", b)
	}
	return fa + fb, nil
}
