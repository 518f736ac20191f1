package memstore

import (
	"errors"
	"sort"

	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
)

var errMixedProjection = errors.New("projection cannot mix inclusion and exclusion")

func project(doc map[string]any, fields dao.Fields) (map[string]any, error) {
	if len(fields) == 0 {
		return doc, nil
	}
	inclusion, exclusion := false, false
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		if v != 0 {
			inclusion = true
		} else {
			exclusion = true
		}
	}
	if inclusion && exclusion {
		return nil, errMixedProjection
	}
	// {_id: 1} alone still selects
	if v, ok := fields["_id"]; ok && v != 0 && !exclusion {
		inclusion = true
	}

	if !inclusion {
		out := clone(doc)
		for k, v := range fields {
			if v == 0 {
				deletePath(out, k)
			}
		}
		return out, nil
	}

	out := map[string]any{}
	if v, ok := fields["_id"]; !ok || v != 0 {
		if id, ok := doc["_id"]; ok {
			out["_id"] = id
		}
	}
	for k, v := range fields {
		if v == 0 || k == "_id" {
			continue
		}
		if val, ok := lookup(doc, k); ok {
			setPath(out, k, normalize(val))
		}
	}
	return out, nil
}

func sortDocs(docs []map[string]any, order dao.SortOrder) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, f := range order {
			a, _ := lookup(docs[i], f.Field)
			b, _ := lookup(docs[j], f.Field)
			c := compare(a, b)
			if c == 0 {
				continue
			}
			if f.Direction < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// distinct keeps the unique values of field, in order of first appearance.
// Array values contribute their elements; missing and null values are dropped.
func distinct(docs []map[string]any, field string) []map[string]any {
	var values []any
	for _, d := range docs {
		v, ok := lookup(d, field)
		if !ok || v == nil {
			continue
		}
		items := []any{v}
		if arr, isArr := v.([]any); isArr {
			items = arr
		}
		for _, item := range items {
			if !containsEqual(values, item) {
				values = append(values, item)
			}
		}
	}
	out := make([]map[string]any, 0, len(values))
	for _, v := range values {
		doc := map[string]any{}
		setPath(doc, field, v)
		out = append(out, doc)
	}
	return out
}

func containsEqual(list []any, v any) bool {
	for _, x := range list {
		if equal(x, v) {
			return true
		}
	}
	return false
}
