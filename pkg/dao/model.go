package dao

import "context"

// Model is the capability set of one collection. The facade is written against
// this interface only; concrete stores live in adapter packages.
//
// Implementations return plain data (no store-specific object semantics) and
// report "no match" through the boolean results, never through an error.
type Model interface {
	// Collection names the underlying collection, used when reporting faults.
	Collection() string

	Find(ctx context.Context, query *Query) ([]Document, error)
	FindOne(ctx context.Context, query *Query) (Document, bool, error)
	// Count may return a negative number when the store produced no countable result.
	Count(ctx context.Context, filter Filter) (int64, error)

	InsertOne(ctx context.Context, doc Document) (Document, error)
	InsertMany(ctx context.Context, docs []Document) ([]Document, error)

	// FindOneAndUpdate applies update to the first match in one store call and
	// returns the document as it is after the update.
	FindOneAndUpdate(ctx context.Context, filter Filter, update Document) (Document, bool, error)
	UpdateMany(ctx context.Context, filter Filter, update Document) (UpdateSummary, error)
	DeleteMany(ctx context.Context, filter Filter) (DeleteSummary, error)

	Aggregate(ctx context.Context, stages []Stage) ([]Document, error)
}
