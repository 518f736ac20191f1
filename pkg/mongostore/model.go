// Package mongostore implements dao.Model on top of a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ dao.Model = (*Model)(nil)

type Options struct {
	// IDStrategy defaults to ObjectIDStrategy.
	IDStrategy IDStrategy
}

type Model struct {
	collection *mongo.Collection
	ids        IDStrategy
}

func NewModel(db *mongo.Database, name string, opts Options) *Model {
	return FromCollection(db.Collection(name), opts)
}

func FromCollection(collection *mongo.Collection, opts Options) *Model {
	ids := opts.IDStrategy
	if ids == nil {
		ids = ObjectIDStrategy{}
	}
	return &Model{collection: collection, ids: ids}
}

func (m *Model) Collection() string {
	return m.collection.Name()
}

func (m *Model) filter(f dao.Filter) (bson.M, error) {
	if f == nil {
		return bson.M{}, nil
	}
	translated, err := storageFilter(f, m.ids)
	if err != nil {
		return nil, err
	}
	return mapToBSON(translated), nil
}

func (m *Model) Find(ctx context.Context, q *dao.Query) ([]dao.Document, error) {
	filter, err := m.filter(q.Filter)
	if err != nil {
		return nil, err
	}

	var cursor *mongo.Cursor
	if usesPipeline(q) {
		cursor, err = m.collection.Aggregate(ctx, pipeline(q, filter))
	} else {
		cursor, err = m.collection.Find(ctx, filter, findOptions(q))
	}
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}
	return toDocuments(raw), nil
}

func (m *Model) FindOne(ctx context.Context, q *dao.Query) (dao.Document, bool, error) {
	filter, err := m.filter(q.Filter)
	if err != nil {
		return nil, false, err
	}

	if usesPipeline(q) {
		cursor, err := m.collection.Aggregate(ctx, pipeline(q, filter))
		if err != nil {
			return nil, false, err
		}
		var raw []bson.M
		if err := cursor.All(ctx, &raw); err != nil {
			return nil, false, err
		}
		if len(raw) == 0 {
			return nil, false, nil
		}
		return toDocument(raw[0]), true, nil
	}

	var raw bson.M
	err = m.collection.FindOne(ctx, filter, findOneOptions(q)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return toDocument(raw), true, nil
}

func (m *Model) Count(ctx context.Context, f dao.Filter) (int64, error) {
	filter, err := m.filter(f)
	if err != nil {
		return 0, err
	}
	return m.collection.CountDocuments(ctx, filter)
}

// prepare converts doc for storage, assigning an _id when it has none.
func (m *Model) prepare(doc dao.Document) (bson.M, error) {
	out := mapToBSON(doc)
	if out == nil {
		out = bson.M{}
	}
	if id, ok := out["_id"]; ok {
		storageID, err := m.ids.ToStorageFormat(id)
		if err != nil {
			return nil, err
		}
		out["_id"] = storageID
	} else {
		out["_id"] = m.ids.GenerateID()
	}
	return out, nil
}

func (m *Model) InsertOne(ctx context.Context, doc dao.Document) (dao.Document, error) {
	stored, err := m.prepare(doc)
	if err != nil {
		return nil, err
	}
	if _, err := m.collection.InsertOne(ctx, stored); err != nil {
		return nil, err
	}
	return toDocument(stored), nil
}

func (m *Model) InsertMany(ctx context.Context, docs []dao.Document) ([]dao.Document, error) {
	if len(docs) == 0 {
		return []dao.Document{}, nil
	}
	batch := make([]any, len(docs))
	stored := make([]bson.M, len(docs))
	for i, d := range docs {
		s, err := m.prepare(d)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		stored[i] = s
		batch[i] = s
	}
	if _, err := m.collection.InsertMany(ctx, batch); err != nil {
		return nil, err
	}
	return toDocuments(stored), nil
}

func (m *Model) FindOneAndUpdate(ctx context.Context, f dao.Filter, update dao.Document) (dao.Document, bool, error) {
	filter, err := m.filter(f)
	if err != nil {
		return nil, false, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var raw bson.M
	err = m.collection.FindOneAndUpdate(ctx, filter, mapToBSON(update), opts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return toDocument(raw), true, nil
}

func (m *Model) UpdateMany(ctx context.Context, f dao.Filter, update dao.Document) (dao.UpdateSummary, error) {
	filter, err := m.filter(f)
	if err != nil {
		return dao.UpdateSummary{}, err
	}
	// unacknowledged writes surface as faults
	res, err := m.collection.UpdateMany(ctx, filter, mapToBSON(update))
	if err != nil {
		return dao.UpdateSummary{}, err
	}
	return dao.UpdateSummary{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (m *Model) DeleteMany(ctx context.Context, f dao.Filter) (dao.DeleteSummary, error) {
	filter, err := m.filter(f)
	if err != nil {
		return dao.DeleteSummary{}, err
	}
	res, err := m.collection.DeleteMany(ctx, filter)
	if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return dao.DeleteSummary{Acknowledged: false}, nil
	}
	if err != nil {
		return dao.DeleteSummary{}, err
	}
	return dao.DeleteSummary{Acknowledged: true, Deleted: res.DeletedCount}, nil
}

func (m *Model) Aggregate(ctx context.Context, stages []dao.Stage) ([]dao.Document, error) {
	pipe := make(bson.A, len(stages))
	for i, s := range stages {
		pipe[i] = stageToBSON(s)
	}
	cursor, err := m.collection.Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}
	return toDocuments(raw), nil
}

// stageToBSON encodes a single-operator stage as bson.D; the server rejects
// stage documents with more than one key anyway.
func stageToBSON(s dao.Stage) any {
	if len(s) != 1 {
		return mapToBSON(s)
	}
	for k, v := range s {
		return bson.D{{Key: k, Value: toBSON(v)}}
	}
	return nil
}
