// Package dao is a generic data-access facade over document stores.
//
// Callers describe a read with a QuerySpec (or a filter and selection for the
// existence checks), hand in the Model of the collection they target and get
// back a Result that keeps "no match" apart from empty or zero values. Every
// operation reports store faults through the configured Reporter and returns
// them unchanged.
package dao

import (
	"context"

	"go.uber.org/zap"
)

// DAO is immutable after New and safe for concurrent use.
type DAO struct {
	reporter Reporter
}

type Option func(*DAO)

// WithReporter sets the fault observer. Defaults to a no-op zap logger.
func WithReporter(r Reporter) Option {
	return func(d *DAO) {
		if r != nil {
			d.reporter = r
		}
	}
}

func New(opts ...Option) *DAO {
	d := &DAO{reporter: NewZapReporter(zap.NewNop())}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Exists returns every document matching filter, or NotFound when none does.
// sel restricts the materialized fields and never changes which documents match.
func (d *DAO) Exists(ctx context.Context, m Model, filter Filter, sel Fields) (Result[[]Document], error) {
	q := NewQueryBuilder(KindFind, filter).Select(sel).Build()
	return guard(d, "Exists", m, func() (Result[[]Document], error) {
		docs, err := m.Find(ctx, q)
		if err != nil {
			return NotFound[[]Document](), err
		}
		if len(docs) == 0 {
			return NotFound[[]Document](), nil
		}
		return Found(docs), nil
	})
}

// ExistsOne returns the first document matching filter, or NotFound.
func (d *DAO) ExistsOne(ctx context.Context, m Model, filter Filter, sel Fields) (Result[Document], error) {
	q := NewQueryBuilder(KindFindOne, filter).Select(sel).Build()
	return guard(d, "ExistsOne", m, func() (Result[Document], error) {
		return findOne(ctx, m, q)
	})
}

// Count counts documents matching filter; a nil filter counts all. Zero is a
// valid count. NotFound means the store produced no countable result.
func (d *DAO) Count(ctx context.Context, m Model, filter Filter) (Result[int64], error) {
	return guard(d, "Count", m, func() (Result[int64], error) {
		n, err := m.Count(ctx, filter)
		if err != nil {
			return NotFound[int64](), err
		}
		if n < 0 {
			return NotFound[int64](), nil
		}
		return Found(n), nil
	})
}

// Insert persists doc unconditionally and returns it with store-assigned fields.
func (d *DAO) Insert(ctx context.Context, m Model, doc Document) (Document, error) {
	return guard(d, "Insert", m, func() (Document, error) {
		return m.InsertOne(ctx, doc)
	})
}

func (d *DAO) InsertMany(ctx context.Context, m Model, docs []Document) ([]Document, error) {
	return guard(d, "InsertMany", m, func() ([]Document, error) {
		if len(docs) == 0 {
			return []Document{}, nil
		}
		return m.InsertMany(ctx, docs)
	})
}

// Find runs spec and returns the matching documents. An empty list is a
// valid result here; Find never returns NotFound.
func (d *DAO) Find(ctx context.Context, m Model, spec QuerySpec) ([]Document, error) {
	q := BuildQuery(KindFind, spec)
	return guard(d, "Find", m, func() ([]Document, error) {
		docs, err := m.Find(ctx, q)
		if err != nil {
			return nil, err
		}
		if docs == nil {
			docs = []Document{}
		}
		return docs, nil
	})
}

// FindOne runs spec restricted to a single result. Sort decides which match
// comes first.
func (d *DAO) FindOne(ctx context.Context, m Model, spec QuerySpec) (Result[Document], error) {
	q := BuildQuery(KindFindOne, spec)
	return guard(d, "FindOne", m, func() (Result[Document], error) {
		return findOne(ctx, m, q)
	})
}

// FindAndUpdate applies update to one document matching filter in a single
// store call and returns the post-update document, or NotFound.
func (d *DAO) FindAndUpdate(ctx context.Context, m Model, filter Filter, update Document) (Result[Document], error) {
	return guard(d, "FindAndUpdate", m, func() (Result[Document], error) {
		doc, ok, err := m.FindOneAndUpdate(ctx, filter, AsUpdate(update))
		if err != nil || !ok {
			return NotFound[Document](), err
		}
		return Found(doc), nil
	})
}

// UpdateMany applies update to every match. NotFound means nothing matched.
func (d *DAO) UpdateMany(ctx context.Context, m Model, filter Filter, update Document) (Result[UpdateSummary], error) {
	return guard(d, "UpdateMany", m, func() (Result[UpdateSummary], error) {
		summary, err := m.UpdateMany(ctx, filter, AsUpdate(update))
		if err != nil {
			return NotFound[UpdateSummary](), err
		}
		if summary.Matched == 0 {
			return NotFound[UpdateSummary](), nil
		}
		return Found(summary), nil
	})
}

// Aggregate passes stages through to the store. Empty output is NotFound.
func (d *DAO) Aggregate(ctx context.Context, m Model, stages []Stage) (Result[[]Document], error) {
	return guard(d, "Aggregate", m, func() (Result[[]Document], error) {
		docs, err := m.Aggregate(ctx, stages)
		if err != nil {
			return NotFound[[]Document](), err
		}
		if len(docs) == 0 {
			return NotFound[[]Document](), nil
		}
		return Found(docs), nil
	})
}

// Delete removes every match. Success only says the store completed the call;
// it does not tell how many documents were removed.
func (d *DAO) Delete(ctx context.Context, m Model, filter Filter) (Outcome, error) {
	return guard(d, "Delete", m, func() (Outcome, error) {
		summary, err := m.DeleteMany(ctx, filter)
		if err != nil {
			return Failure, err
		}
		if !summary.Acknowledged {
			return Failure, nil
		}
		return Success, nil
	})
}

func findOne(ctx context.Context, m Model, q *Query) (Result[Document], error) {
	doc, ok, err := m.FindOne(ctx, q)
	if err != nil || !ok {
		return NotFound[Document](), err
	}
	return Found(doc), nil
}
