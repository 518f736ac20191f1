package mongostore

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDStrategy decides how _id values are generated on insert and how
// caller-supplied ids are translated before they reach the server.
type IDStrategy interface {
	GenerateID() any
	ToStorageFormat(id any) (any, error)
}

// ObjectIDStrategy stores ids as ObjectIDs. Hex strings are accepted
// wherever an id is expected.
type ObjectIDStrategy struct{}

func (ObjectIDStrategy) GenerateID() any {
	return primitive.NewObjectID()
}

func (ObjectIDStrategy) ToStorageFormat(id any) (any, error) {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v, nil
	case string:
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ObjectID format: %w", err)
		}
		return oid, nil
	default:
		return nil, fmt.Errorf("invalid ObjectID type %T", id)
	}
}

// StringIDStrategy stores ids as strings, generating UUIDs when a document
// arrives without one.
type StringIDStrategy struct{}

func (StringIDStrategy) GenerateID() any {
	return uuid.NewString()
}

func (StringIDStrategy) ToStorageFormat(id any) (any, error) {
	s, ok := id.(string)
	if !ok {
		return nil, fmt.Errorf("invalid _id type %T, expected string", id)
	}
	return s, nil
}

// storageFilter rewrites every _id condition of filter through ids, descending
// into $and, $or and $nor. Equality and the $eq, $ne, $in and $nin operators
// are translated; any other shape is passed through untouched.
func storageFilter(filter map[string]any, ids IDStrategy) (map[string]any, error) {
	out := make(map[string]any, len(filter))
	for k, v := range filter {
		switch k {
		case "_id":
			id, err := storageID(v, ids)
			if err != nil {
				return nil, err
			}
			out[k] = id
		case "$and", "$or", "$nor":
			subs, err := storageFilters(v, ids)
			if err != nil {
				return nil, err
			}
			out[k] = subs
		default:
			out[k] = v
		}
	}
	return out, nil
}

func storageFilters(v any, ids IDStrategy) (any, error) {
	list, ok := v.([]any)
	if !ok {
		return v, nil
	}
	out := make([]any, len(list))
	for i, item := range list {
		var sub map[string]any
		switch f := item.(type) {
		case map[string]any:
			sub = f
		case dao.Filter:
			sub = f
		default:
			out[i] = item
			continue
		}
		translated, err := storageFilter(sub, ids)
		if err != nil {
			return nil, err
		}
		out[i] = translated
	}
	return out, nil
}

func storageID(raw any, ids IDStrategy) (any, error) {
	cond, isCond := raw.(map[string]any)
	if !isCond {
		return ids.ToStorageFormat(raw)
	}

	translated := make(map[string]any, len(cond))
	for op, v := range cond {
		switch op {
		case "$eq", "$ne":
			id, err := ids.ToStorageFormat(v)
			if err != nil {
				return nil, err
			}
			translated[op] = id
		case "$in", "$nin":
			list, ok := v.([]any)
			if !ok {
				translated[op] = v
				continue
			}
			converted := make([]any, len(list))
			for i, item := range list {
				id, err := ids.ToStorageFormat(item)
				if err != nil {
					return nil, err
				}
				converted[i] = id
			}
			translated[op] = converted
		default:
			translated[op] = v
		}
	}
	return translated, nil
}
