package dao

// Modifier names one optional query modifier.
type Modifier string

const (
	ModFilter     Modifier = "filter"
	ModProjection Modifier = "projection"
	ModSelect     Modifier = "select"
	ModDistinct   Modifier = "distinct"
	ModSort       Modifier = "sort"
	ModSkip       Modifier = "skip"
	ModLimit      Modifier = "limit"
	ModPopulate   Modifier = "populate"
)

// modifierOrder is the fixed application order. Stores must honour it so that
// combined modifiers interact deterministically.
var modifierOrder = []Modifier{
	ModFilter,
	ModProjection,
	ModSelect,
	ModDistinct,
	ModSort,
	ModSkip,
	ModLimit,
	ModPopulate,
}

// ModifierOrder returns the fixed order in which modifiers are applied.
func ModifierOrder() []Modifier {
	out := make([]Modifier, len(modifierOrder))
	copy(out, modifierOrder)
	return out
}

// QuerySpec is the configuration a caller hands to Find and FindOne. Every
// field is optional: an absent field means "apply no such modifier".
type QuerySpec struct {
	Filter        Filter     `json:"filter,omitempty"`
	Projection    Fields     `json:"projection,omitempty"`
	Select        Fields     `json:"select,omitempty"`
	Sort          SortOrder  `json:"sort,omitempty"`
	Skip          *int64     `json:"skip,omitempty"`
	Limit         *int64     `json:"limit,omitempty"`
	Populate      []Relation `json:"populate,omitempty"`
	PopulateField Fields     `json:"populateField,omitempty"`
	Distinct      string     `json:"distinct,omitempty"`
}

// Int64 is a convenience for filling QuerySpec.Skip and QuerySpec.Limit.
func Int64(v int64) *int64 {
	return &v
}

type Kind int

const (
	KindFind Kind = iota
	KindFindOne
)

func (k Kind) String() string {
	if k == KindFindOne {
		return "findOne"
	}
	return "find"
}

// Query is an assembled store query. Stores read the fields in the order
// reported by Applied.
type Query struct {
	Kind          Kind
	Filter        Filter
	Projection    Fields
	Select        Fields
	Distinct      string
	Sort          SortOrder
	Skip          int64
	Limit         int64
	Populate      []Relation
	PopulateField Fields

	applied map[Modifier]bool
}

// Has reports whether modifier m was supplied.
func (q *Query) Has(m Modifier) bool {
	return q.applied[m]
}

// Applied lists the supplied modifiers in application order.
func (q *Query) Applied() []Modifier {
	out := make([]Modifier, 0, len(q.applied))
	for _, m := range modifierOrder {
		if q.applied[m] {
			out = append(out, m)
		}
	}
	return out
}

// Fields merges projection and selection into the set of fields to
// materialize; selection wins on conflicts. Nil means all fields.
func (q *Query) Fields() Fields {
	if !q.Has(ModProjection) && !q.Has(ModSelect) {
		return nil
	}
	out := make(Fields, len(q.Projection)+len(q.Select))
	for k, v := range q.Projection {
		out[k] = v
	}
	for k, v := range q.Select {
		out[k] = v
	}
	return out
}

// QueryBuilder assembles a Query from optional modifiers. Setters that receive
// an empty value leave the modifier unapplied.
type QueryBuilder struct {
	q *Query
}

func NewQueryBuilder(kind Kind, filter Filter) *QueryBuilder {
	return &QueryBuilder{q: &Query{
		Kind:    kind,
		Filter:  filter,
		applied: map[Modifier]bool{ModFilter: true},
	}}
}

func (b *QueryBuilder) Project(fields Fields) *QueryBuilder {
	if len(fields) > 0 {
		b.q.Projection = fields
		b.q.applied[ModProjection] = true
	}
	return b
}

func (b *QueryBuilder) Select(fields Fields) *QueryBuilder {
	if len(fields) > 0 {
		b.q.Select = fields
		b.q.applied[ModSelect] = true
	}
	return b
}

func (b *QueryBuilder) Distinct(field string) *QueryBuilder {
	if field != "" {
		b.q.Distinct = field
		b.q.applied[ModDistinct] = true
	}
	return b
}

func (b *QueryBuilder) Sort(order SortOrder) *QueryBuilder {
	if len(order) > 0 {
		b.q.Sort = order
		b.q.applied[ModSort] = true
	}
	return b
}

func (b *QueryBuilder) Skip(n *int64) *QueryBuilder {
	if n != nil {
		b.q.Skip = *n
		b.q.applied[ModSkip] = true
	}
	return b
}

// Limit ignores non-positive values: stores treat a zero limit as unlimited.
func (b *QueryBuilder) Limit(n *int64) *QueryBuilder {
	if n != nil && *n > 0 {
		b.q.Limit = *n
		b.q.applied[ModLimit] = true
	}
	return b
}

// Populate resolves the given relations, restricting embedded documents to
// sub when it is non-empty. A sub-selector without relations is a no-op.
func (b *QueryBuilder) Populate(relations []Relation, sub Fields) *QueryBuilder {
	if len(relations) == 0 {
		return b
	}
	b.q.Populate = relations
	if len(sub) > 0 {
		b.q.PopulateField = sub
	}
	b.q.applied[ModPopulate] = true
	return b
}

func (b *QueryBuilder) Build() *Query {
	return b.q
}

// BuildQuery applies every modifier present in spec. For KindFindOne only
// filter, select, sort and populate are meaningful; the rest are ignored.
func BuildQuery(kind Kind, spec QuerySpec) *Query {
	b := NewQueryBuilder(kind, spec.Filter)
	if kind == KindFindOne {
		return b.Select(spec.Select).
			Sort(spec.Sort).
			Populate(spec.Populate, spec.PopulateField).
			Build()
	}
	return b.Project(spec.Projection).
		Select(spec.Select).
		Distinct(spec.Distinct).
		Sort(spec.Sort).
		Skip(spec.Skip).
		Limit(spec.Limit).
		Populate(spec.Populate, spec.PopulateField).
		Build()
}
