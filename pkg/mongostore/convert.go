package mongostore

import (
	"fmt"

	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toBSON converts facade values into driver values. Maps become bson.M and
// sort orders become bson.D so key order survives encoding.
func toBSON(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case dao.SortOrder:
		return sortToBSON(t)
	case dao.Document:
		return mapToBSON(t)
	case dao.Filter:
		return mapToBSON(t)
	case dao.Stage:
		return mapToBSON(t)
	case dao.Fields:
		out := make(bson.M, len(t))
		for k, n := range t {
			out[k] = n
		}
		return out
	case map[string]any:
		return mapToBSON(t)
	case bson.M:
		return mapToBSON(t)
	case []any:
		out := make(bson.A, len(t))
		for i, item := range t {
			out[i] = toBSON(item)
		}
		return out
	case []dao.Stage:
		out := make(bson.A, len(t))
		for i, item := range t {
			out[i] = mapToBSON(item)
		}
		return out
	case []dao.Filter:
		out := make(bson.A, len(t))
		for i, item := range t {
			out[i] = mapToBSON(item)
		}
		return out
	default:
		return v
	}
}

func mapToBSON(m map[string]any) bson.M {
	if m == nil {
		return nil
	}
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = toBSON(v)
	}
	return out
}

func sortToBSON(order dao.SortOrder) bson.D {
	out := make(bson.D, 0, len(order))
	for _, f := range order {
		dir := dao.Asc
		if f.Direction < 0 {
			dir = dao.Desc
		}
		out = append(out, bson.E{Key: f.Field, Value: dir})
	}
	return out
}

// plain strips driver container types from a decoded value so callers only
// see maps, slices and scalars. ObjectIDs are kept; they encode to JSON as hex.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		return plainMap(t)
	case map[string]any:
		return plainMap(t)
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plain(v)
	}
	return out
}

func toDocument(raw bson.M) dao.Document {
	return dao.Document(plainMap(raw))
}

func toDocuments(raw []bson.M) []dao.Document {
	out := make([]dao.Document, len(raw))
	for i, r := range raw {
		out[i] = toDocument(r)
	}
	return out
}

// Decode maps a document onto a typed value through its bson tags.
func Decode[T any](doc dao.Document) (T, error) {
	var out T
	data, err := bson.Marshal(toBSON(doc))
	if err != nil {
		return out, fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := bson.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal to model: %w", err)
	}
	return out, nil
}

func DecodeAll[T any](docs []dao.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
