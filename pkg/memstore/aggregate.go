package memstore

import (
	"fmt"
	"strings"

	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
)

func runPipeline(docs []map[string]any, stages []dao.Stage) ([]map[string]any, error) {
	for i, stage := range stages {
		if len(stage) != 1 {
			return nil, fmt.Errorf("stage %d must have exactly one operator, got %d", i, len(stage))
		}
		for op, arg := range stage {
			var err error
			docs, err = runStage(docs, op, arg)
			if err != nil {
				return nil, fmt.Errorf("stage %d (%s): %w", i, op, err)
			}
		}
	}
	return docs, nil
}

func runStage(docs []map[string]any, op string, arg any) ([]map[string]any, error) {
	switch op {
	case "$match":
		filter, ok := normalize(arg).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expects a document")
		}
		out := docs[:0:0]
		for _, d := range docs {
			hit, err := matches(d, filter)
			if err != nil {
				return nil, err
			}
			if hit {
				out = append(out, d)
			}
		}
		return out, nil
	case "$project":
		fields, err := toFields(arg)
		if err != nil {
			return nil, err
		}
		for i, d := range docs {
			if docs[i], err = project(d, fields); err != nil {
				return nil, err
			}
		}
		return docs, nil
	case "$sort":
		order, err := toSortOrder(arg)
		if err != nil {
			return nil, err
		}
		sortDocs(docs, order)
		return docs, nil
	case "$skip":
		n, ok := toInt64(arg)
		if !ok || n < 0 {
			return nil, fmt.Errorf("expects a non-negative integer")
		}
		if n > int64(len(docs)) {
			n = int64(len(docs))
		}
		return docs[n:], nil
	case "$limit":
		n, ok := toInt64(arg)
		if !ok || n <= 0 {
			return nil, fmt.Errorf("expects a positive integer")
		}
		if n < int64(len(docs)) {
			docs = docs[:n]
		}
		return docs, nil
	case "$count":
		name, ok := arg.(string)
		if !ok || name == "" || strings.HasPrefix(name, "$") {
			return nil, fmt.Errorf("expects a field name")
		}
		if len(docs) == 0 {
			return nil, nil
		}
		return []map[string]any{{name: int64(len(docs))}}, nil
	case "$group":
		spec, ok := normalize(arg).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expects a document")
		}
		return group(docs, spec)
	}
	return nil, fmt.Errorf("unsupported stage")
}

func toFields(arg any) (dao.Fields, error) {
	raw, ok := normalize(arg).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expects a document")
	}
	fields := make(dao.Fields, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case bool:
			if x {
				fields[k] = 1
			} else {
				fields[k] = 0
			}
		default:
			n, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("computed field %s is not supported", k)
			}
			if n != 0 {
				fields[k] = 1
			} else {
				fields[k] = 0
			}
		}
	}
	return fields, nil
}

// toSortOrder accepts a dao.SortOrder, or a single-key document. Several keys
// in a map lose their order, so they are rejected.
func toSortOrder(arg any) (dao.SortOrder, error) {
	switch t := arg.(type) {
	case dao.SortOrder:
		return t, nil
	case []dao.SortField:
		return dao.SortOrder(t), nil
	}
	raw, ok := normalize(arg).(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("expects a sort document")
	}
	if len(raw) > 1 {
		return nil, fmt.Errorf("sorting on several keys requires a dao.SortOrder")
	}
	order := dao.SortOrder{}
	for k, v := range raw {
		n, ok := toFloat(v)
		if !ok || (n != 1 && n != -1) {
			return nil, fmt.Errorf("direction of %s must be 1 or -1", k)
		}
		order = append(order, dao.SortField{Field: k, Direction: int(n)})
	}
	return order, nil
}

func evalExpr(doc map[string]any, expr any) any {
	switch t := expr.(type) {
	case string:
		if strings.HasPrefix(t, "$") {
			v, _ := lookup(doc, t[1:])
			return v
		}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = evalExpr(doc, v)
		}
		return out
	}
	return expr
}

type bucket struct {
	key  any
	docs []map[string]any
}

func group(docs []map[string]any, spec map[string]any) ([]map[string]any, error) {
	idExpr, ok := spec["_id"]
	if !ok {
		return nil, fmt.Errorf("a group specification must include an _id")
	}
	var buckets []*bucket
	for _, d := range docs {
		key := evalExpr(d, idExpr)
		var b *bucket
		for _, candidate := range buckets {
			if equal(candidate.key, key) {
				b = candidate
				break
			}
		}
		if b == nil {
			b = &bucket{key: key}
			buckets = append(buckets, b)
		}
		b.docs = append(b.docs, d)
	}

	out := make([]map[string]any, 0, len(buckets))
	for _, b := range buckets {
		row := map[string]any{"_id": b.key}
		for field, accSpec := range spec {
			if field == "_id" {
				continue
			}
			acc, ok := accSpec.(map[string]any)
			if !ok || len(acc) != 1 {
				return nil, fmt.Errorf("field %s must be an accumulator object", field)
			}
			for name, expr := range acc {
				v, err := accumulate(name, expr, b.docs)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", field, err)
				}
				row[field] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func accumulate(name string, expr any, docs []map[string]any) (any, error) {
	values := make([]any, 0, len(docs))
	for _, d := range docs {
		values = append(values, evalExpr(d, expr))
	}
	switch name {
	case "$sum":
		var isum int64
		var fsum float64
		floats := false
		for _, v := range values {
			if i, ok := toInt64(v); ok {
				isum += i
				continue
			}
			if f, ok := toFloat(v); ok {
				fsum += f
				floats = true
			}
		}
		if floats {
			return fsum + float64(isum), nil
		}
		return isum, nil
	case "$avg":
		var sum float64
		n := 0
		for _, v := range values {
			if f, ok := toFloat(v); ok {
				sum += f
				n++
			}
		}
		if n == 0 {
			return nil, nil
		}
		return sum / float64(n), nil
	case "$min", "$max":
		var best any
		for _, v := range values {
			if v == nil {
				continue
			}
			if best == nil || (name == "$min" && compare(v, best) < 0) || (name == "$max" && compare(v, best) > 0) {
				best = v
			}
		}
		return best, nil
	case "$first":
		if len(values) == 0 {
			return nil, nil
		}
		return values[0], nil
	case "$last":
		if len(values) == 0 {
			return nil, nil
		}
		return values[len(values)-1], nil
	case "$push":
		return values, nil
	case "$count":
		return int64(len(values)), nil
	}
	return nil, fmt.Errorf("unsupported accumulator %s", name)
}
