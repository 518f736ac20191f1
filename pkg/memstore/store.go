// Package memstore is an in-memory document store implementing dao.Model.
// It keeps collections in process memory and evaluates the document-store
// filter dialect itself, which makes it suitable for tests and local runs.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
)

// ErrDuplicateKey is returned when an insert reuses an existing _id.
var ErrDuplicateKey = errors.New("duplicate key")

// Operation names accepted by Model.FailWith.
const (
	OpFind             = "find"
	OpFindOne          = "findOne"
	OpCount            = "count"
	OpInsertOne        = "insertOne"
	OpInsertMany       = "insertMany"
	OpFindOneAndUpdate = "findOneAndUpdate"
	OpUpdateMany       = "updateMany"
	OpDeleteMany       = "deleteMany"
	OpAggregate        = "aggregate"
)

type collection struct {
	docs []map[string]any
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection

	faultMu sync.Mutex
	faults  map[string]error
}

func New() *Store {
	return &Store{
		collections: map[string]*collection{},
		faults:      map[string]error{},
	}
}

// Model returns the handle of the named collection. Handles are cheap and
// share the store's data.
func (s *Store) Model(name string) *Model {
	return &Model{store: s, name: name}
}

// Collections lists the names of collections holding at least one insert.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names
}

func (s *Store) docs(name string) []map[string]any {
	if c, ok := s.collections[name]; ok {
		return c.docs
	}
	return nil
}

func (s *Store) filtered(name string, filter dao.Filter) ([]map[string]any, []int, error) {
	f := normalizeMap(filter)
	var (
		out     []map[string]any
		indexes []int
	)
	for i, d := range s.docs(name) {
		hit, err := matches(d, f)
		if err != nil {
			return nil, nil, err
		}
		if hit {
			out = append(out, d)
			indexes = append(indexes, i)
		}
	}
	return out, indexes, nil
}

// Model is the dao.Model of one in-memory collection.
type Model struct {
	store *Store
	name  string
}

var _ dao.Model = (*Model)(nil)

func (m *Model) Collection() string {
	return m.name
}

// FailWith makes every subsequent call of op fail with err until it is
// cleared with a nil error.
func (m *Model) FailWith(op string, err error) {
	m.store.faultMu.Lock()
	defer m.store.faultMu.Unlock()
	key := m.name + "/" + op
	if err == nil {
		delete(m.store.faults, key)
		return
	}
	m.store.faults[key] = err
}

func (m *Model) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.store.faultMu.Lock()
	defer m.store.faultMu.Unlock()
	return m.store.faults[m.name+"/"+op]
}

func (m *Model) Find(ctx context.Context, q *dao.Query) ([]dao.Document, error) {
	if err := m.check(ctx, OpFind); err != nil {
		return nil, err
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	docs, err := m.store.run(m.name, q)
	if err != nil {
		return nil, err
	}
	return toDocuments(docs), nil
}

func (m *Model) FindOne(ctx context.Context, q *dao.Query) (dao.Document, bool, error) {
	if err := m.check(ctx, OpFindOne); err != nil {
		return nil, false, err
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	docs, err := m.store.run(m.name, q)
	if err != nil || len(docs) == 0 {
		return nil, false, err
	}
	return dao.Document(docs[0]), true, nil
}

func (m *Model) Count(ctx context.Context, filter dao.Filter) (int64, error) {
	if err := m.check(ctx, OpCount); err != nil {
		return 0, err
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	docs, _, err := m.store.filtered(m.name, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (m *Model) InsertOne(ctx context.Context, doc dao.Document) (dao.Document, error) {
	if err := m.check(ctx, OpInsertOne); err != nil {
		return nil, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, err := m.store.insert(m.name, []dao.Document{doc})
	if err != nil {
		return nil, err
	}
	return dao.Document(clone(stored[0])), nil
}

func (m *Model) InsertMany(ctx context.Context, docs []dao.Document) ([]dao.Document, error) {
	if err := m.check(ctx, OpInsertMany); err != nil {
		return nil, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, err := m.store.insert(m.name, docs)
	if err != nil {
		return nil, err
	}
	out := make([]dao.Document, len(stored))
	for i, d := range stored {
		out[i] = dao.Document(clone(d))
	}
	return out, nil
}

func (m *Model) FindOneAndUpdate(ctx context.Context, filter dao.Filter, update dao.Document) (dao.Document, bool, error) {
	if err := m.check(ctx, OpFindOneAndUpdate); err != nil {
		return nil, false, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	_, indexes, err := m.store.filtered(m.name, filter)
	if err != nil || len(indexes) == 0 {
		return nil, false, err
	}
	c := m.store.collections[m.name]
	updated := clone(c.docs[indexes[0]])
	if _, err := applyUpdate(updated, normalizeMap(update)); err != nil {
		return nil, false, err
	}
	c.docs[indexes[0]] = updated
	return dao.Document(clone(updated)), true, nil
}

func (m *Model) UpdateMany(ctx context.Context, filter dao.Filter, update dao.Document) (dao.UpdateSummary, error) {
	if err := m.check(ctx, OpUpdateMany); err != nil {
		return dao.UpdateSummary{}, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	_, indexes, err := m.store.filtered(m.name, filter)
	if err != nil || len(indexes) == 0 {
		return dao.UpdateSummary{}, err
	}
	u := normalizeMap(update)
	c := m.store.collections[m.name]
	next := make([]map[string]any, len(indexes))
	summary := dao.UpdateSummary{Matched: int64(len(indexes))}
	for i, idx := range indexes {
		next[i] = clone(c.docs[idx])
		changed, err := applyUpdate(next[i], u)
		if err != nil {
			return dao.UpdateSummary{}, err
		}
		if changed {
			summary.Modified++
		}
	}
	for i, idx := range indexes {
		c.docs[idx] = next[i]
	}
	return summary, nil
}

func (m *Model) DeleteMany(ctx context.Context, filter dao.Filter) (dao.DeleteSummary, error) {
	if err := m.check(ctx, OpDeleteMany); err != nil {
		return dao.DeleteSummary{}, err
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	_, indexes, err := m.store.filtered(m.name, filter)
	if err != nil {
		return dao.DeleteSummary{}, err
	}
	if len(indexes) > 0 {
		c := m.store.collections[m.name]
		drop := make(map[int]bool, len(indexes))
		for _, idx := range indexes {
			drop[idx] = true
		}
		kept := make([]map[string]any, 0, len(c.docs)-len(indexes))
		for i, d := range c.docs {
			if !drop[i] {
				kept = append(kept, d)
			}
		}
		c.docs = kept
	}
	return dao.DeleteSummary{Acknowledged: true, Deleted: int64(len(indexes))}, nil
}

func (m *Model) Aggregate(ctx context.Context, stages []dao.Stage) ([]dao.Document, error) {
	if err := m.check(ctx, OpAggregate); err != nil {
		return nil, err
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	src := m.store.docs(m.name)
	docs := make([]map[string]any, len(src))
	for i, d := range src {
		docs[i] = clone(d)
	}
	out, err := runPipeline(docs, stages)
	if err != nil {
		return nil, err
	}
	return toDocuments(out), nil
}

// insert assigns missing ids and appends docs atomically: either all of them
// are stored or none is. Callers hold the write lock.
func (s *Store) insert(name string, docs []dao.Document) ([]map[string]any, error) {
	existing := s.docs(name)
	stored := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		d := normalizeMap(map[string]any(doc))
		if d == nil {
			d = map[string]any{}
		}
		if _, ok := d["_id"]; !ok {
			d["_id"] = uuid.NewString()
		}
		for _, other := range append(existing[:len(existing):len(existing)], stored...) {
			if equal(other["_id"], d["_id"]) {
				return nil, fmt.Errorf("%w: collection %q, _id %v", ErrDuplicateKey, name, d["_id"])
			}
		}
		stored = append(stored, d)
	}
	c, ok := s.collections[name]
	if !ok {
		c = &collection{}
		s.collections[name] = c
	}
	c.docs = append(c.docs, stored...)
	return stored, nil
}

// run evaluates q against a collection following the modifier order of
// dao.Query.Applied. Projection is applied last so sort and population can
// see every field. Callers hold the read lock.
func (s *Store) run(name string, q *dao.Query) ([]map[string]any, error) {
	matched, _, err := s.filtered(name, q.Filter)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]any, len(matched))
	for i, d := range matched {
		docs[i] = clone(d)
	}

	for _, mod := range q.Applied() {
		switch mod {
		case dao.ModDistinct:
			docs = distinct(docs, q.Distinct)
		case dao.ModSort:
			sortDocs(docs, q.Sort)
		case dao.ModSkip:
			if q.Skip < 0 {
				return nil, fmt.Errorf("skip must be non-negative, got %d", q.Skip)
			}
			if q.Skip < int64(len(docs)) {
				docs = docs[q.Skip:]
			} else {
				docs = docs[:0]
			}
		case dao.ModLimit:
			if q.Limit < int64(len(docs)) {
				docs = docs[:q.Limit]
			}
		case dao.ModPopulate:
			if !q.Has(dao.ModDistinct) {
				if err := s.populate(docs, q.Populate, q.PopulateField); err != nil {
					return nil, err
				}
			}
		}
	}

	if q.Kind == dao.KindFindOne && len(docs) > 1 {
		docs = docs[:1]
	}
	if fields := q.Fields(); fields != nil && !q.Has(dao.ModDistinct) {
		for i, d := range docs {
			if docs[i], err = project(d, fields); err != nil {
				return nil, err
			}
		}
	}
	return docs, nil
}

// populate replaces reference fields with the referenced documents, in the
// order they are stored in the referenced collection.
func (s *Store) populate(docs []map[string]any, relations []dao.Relation, sub dao.Fields) error {
	for _, rel := range relations {
		targets := s.docs(rel.From)
		for _, d := range docs {
			ref, ok := lookup(d, rel.Path)
			if !ok {
				continue
			}
			refs := []any{ref}
			if arr, isArr := ref.([]any); isArr {
				refs = arr
			}
			var embedded []any
			for _, t := range targets {
				v, ok := lookup(t, rel.Foreign())
				if !ok || !containsEqual(refs, v) {
					continue
				}
				p, err := project(clone(t), sub)
				if err != nil {
					return err
				}
				embedded = append(embedded, p)
			}
			switch {
			case rel.Many:
				if embedded == nil {
					embedded = []any{}
				}
				setPath(d, rel.Path, embedded)
			case len(embedded) > 0:
				setPath(d, rel.Path, embedded[0])
			default:
				setPath(d, rel.Path, nil)
			}
		}
	}
	return nil
}

func toDocuments(docs []map[string]any) []dao.Document {
	out := make([]dao.Document, len(docs))
	for i, d := range docs {
		out[i] = dao.Document(d)
	}
	return out
}
