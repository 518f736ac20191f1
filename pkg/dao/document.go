package dao

import (
	"strings"
)

// Document is one schema-less record materialized as plain data.
type Document map[string]any

// Filter is a predicate tree over field/operator/value triples, expressed in the
// document-store dialect ({"age": {"$gt": 18}}). A nil Filter matches everything.
type Filter map[string]any

// Fields restricts which fields of a matched document are materialized.
// 1 includes a field, 0 excludes it.
type Fields map[string]int

// Stage is one opaque aggregation pipeline stage ({"$match": ...}).
type Stage map[string]any

// Sort directions.
const (
	Asc  = 1
	Desc = -1
)

type SortField struct {
	Field     string `json:"field"`
	Direction int    `json:"direction"`
}

// SortOrder is an ordered list of sort keys; earlier keys take precedence.
type SortOrder []SortField

// Relation describes how to populate a reference field from another collection.
type Relation struct {
	// Path is the field holding the reference(s); populated documents replace it.
	Path string `json:"path"`
	// From is the referenced collection.
	From string `json:"from"`
	// ForeignField is matched against the reference value. Defaults to "_id".
	ForeignField string `json:"foreignField,omitempty"`
	// Many embeds an array of documents instead of a single one.
	Many bool `json:"many,omitempty"`
}

func (r Relation) Foreign() string {
	if r.ForeignField == "" {
		return "_id"
	}
	return r.ForeignField
}

func Eq(field string, value any) Filter {
	return Filter{field: value}
}

func Ne(field string, value any) Filter {
	return Cond(field, "$ne", value)
}

func Gt(field string, value any) Filter {
	return Cond(field, "$gt", value)
}

func Gte(field string, value any) Filter {
	return Cond(field, "$gte", value)
}

func Lt(field string, value any) Filter {
	return Cond(field, "$lt", value)
}

func Lte(field string, value any) Filter {
	return Cond(field, "$lte", value)
}

func In(field string, values ...any) Filter {
	return Cond(field, "$in", values)
}

func Nin(field string, values ...any) Filter {
	return Cond(field, "$nin", values)
}

// HasField matches documents where field is present (or absent).
func HasField(field string, present bool) Filter {
	return Cond(field, "$exists", present)
}

// Cond builds a single field/operator/value triple.
func Cond(field, op string, value any) Filter {
	return Filter{field: map[string]any{op: value}}
}

func And(filters ...Filter) Filter {
	return Filter{"$and": toAnyList(filters)}
}

func Or(filters ...Filter) Filter {
	return Filter{"$or": toAnyList(filters)}
}

// With returns the conjunction of f and other. Clashing keys are combined
// under $and rather than overwritten.
func (f Filter) With(other Filter) Filter {
	if len(f) == 0 {
		return other
	}
	if len(other) == 0 {
		return f
	}
	for k := range other {
		if _, clash := f[k]; clash {
			return And(f, other)
		}
	}
	out := make(Filter, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func toAnyList(filters []Filter) []any {
	out := make([]any, 0, len(filters))
	for _, f := range filters {
		out = append(out, map[string]any(f))
	}
	return out
}

// ParseFields parses the space separated selector form: "name email -password".
func ParseFields(selector string) Fields {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}
	fields := make(Fields, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, "-") {
			fields[strings.TrimPrefix(p, "-")] = 0
			continue
		}
		fields[strings.TrimPrefix(p, "+")] = 1
	}
	return fields
}

// ParseSort parses "-createdAt name" into a SortOrder.
func ParseSort(expr string) SortOrder {
	parts := strings.Fields(expr)
	if len(parts) == 0 {
		return nil
	}
	order := make(SortOrder, 0, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, "-") {
			order = append(order, SortField{Field: strings.TrimPrefix(p, "-"), Direction: Desc})
			continue
		}
		order = append(order, SortField{Field: strings.TrimPrefix(p, "+"), Direction: Asc})
	}
	return order
}

// AsUpdate wraps an operator-less update document in $set so that updates
// replace the given fields only and never overwrite the whole document.
func AsUpdate(update Document) Document {
	if len(update) == 0 {
		return update
	}
	for k := range update {
		if strings.HasPrefix(k, "$") {
			return update
		}
	}
	return Document{"$set": map[string]any(update)}
}
