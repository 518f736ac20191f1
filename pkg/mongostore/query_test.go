package mongostore

import (
	"testing"
	"time"

	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func stageKeys(p []bson.D) []string {
	keys := make([]string, len(p))
	for i, s := range p {
		keys[i] = s[0].Key
	}
	return keys
}

func TestUsesPipeline(t *testing.T) {
	assert.False(t, usesPipeline(dao.BuildQuery(dao.KindFind, dao.QuerySpec{Limit: dao.Int64(2)})))
	assert.True(t, usesPipeline(dao.BuildQuery(dao.KindFind, dao.QuerySpec{Distinct: "tag"})))
	assert.True(t, usesPipeline(dao.BuildQuery(dao.KindFind, dao.QuerySpec{
		Populate: []dao.Relation{{Path: "owner", From: "users"}},
	})))
}

func TestFindOptions(t *testing.T) {
	q := dao.BuildQuery(dao.KindFind, dao.QuerySpec{
		Select: dao.Fields{"name": 1},
		Sort:   dao.ParseSort("-age name"),
		Skip:   dao.Int64(0),
		Limit:  dao.Int64(5),
	})
	opts := findOptions(q)

	assert.Equal(t, bson.M{"name": 1}, opts.Projection)
	assert.Equal(t, bson.D{{Key: "age", Value: -1}, {Key: "name", Value: 1}}, opts.Sort)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(0), *opts.Skip)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(5), *opts.Limit)

	bare := findOptions(dao.BuildQuery(dao.KindFind, dao.QuerySpec{}))
	assert.Nil(t, bare.Projection)
	assert.Nil(t, bare.Sort)
	assert.Nil(t, bare.Skip)
	assert.Nil(t, bare.Limit)
}

func TestPipelineDistinct(t *testing.T) {
	q := dao.BuildQuery(dao.KindFind, dao.QuerySpec{
		Filter:   dao.Eq("active", true),
		Distinct: "role",
		Select:   dao.Fields{"name": 1},
		Sort:     dao.ParseSort("role"),
		Populate: []dao.Relation{{Path: "role", From: "roles"}},
	})
	p := pipeline(q, bson.M{"active": true})

	assert.Equal(t, []string{"$match", "$unwind", "$group", "$project", "$sort"}, stageKeys(p))
	assert.Equal(t, bson.M{"_id": "$role"}, p[2][0].Value)
	assert.Equal(t, bson.M{"_id": 0, "role": "$_id"}, p[3][0].Value)
}

func TestPipelinePopulate(t *testing.T) {
	q := dao.BuildQuery(dao.KindFind, dao.QuerySpec{
		Select:        dao.Fields{"title": 1, "author": 1},
		Limit:         dao.Int64(10),
		Populate:      []dao.Relation{{Path: "author", From: "users"}},
		PopulateField: dao.Fields{"name": 1},
	})
	p := pipeline(q, nil)

	assert.Equal(t, []string{"$match", "$limit", "$lookup", "$addFields", "$project", "$project"}, stageKeys(p))
	assert.Equal(t, bson.M{}, p[0][0].Value)

	lookup := p[2][0].Value.(bson.M)
	assert.Equal(t, "users", lookup["from"])
	assert.Equal(t, "author", lookup["localField"])
	assert.Equal(t, "_id", lookup["foreignField"])
	assert.Equal(t, bson.A{bson.M{"$project": bson.M{"name": 1}}}, lookup["pipeline"])

	assert.Equal(t, bson.M{"title": 1, "author": 1}, p[5][0].Value, "projection comes last")
}

func TestPipelineFindOneLimitsBeforeLookup(t *testing.T) {
	q := dao.BuildQuery(dao.KindFindOne, dao.QuerySpec{
		Sort:     dao.ParseSort("-createdAt"),
		Populate: []dao.Relation{{Path: "tags", From: "tags", Many: true}},
	})
	p := pipeline(q, bson.M{})
	assert.Equal(t, []string{"$match", "$sort", "$limit", "$lookup", "$addFields", "$project"}, stageKeys(p))

	many := p[4][0].Value.(bson.M)["tags"].(bson.M)["$cond"].(bson.A)
	assert.Equal(t, "$$REMOVE", many[1])
	assert.Equal(t, "$"+lookupScratch, many[2])
}

func TestToBSONKeepsSortOrder(t *testing.T) {
	stage := dao.Stage{"$sort": dao.SortOrder{{Field: "b", Direction: dao.Desc}, {Field: "a", Direction: dao.Asc}}}
	assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{{Key: "b", Value: -1}, {Key: "a", Value: 1}}}}, stageToBSON(stage))

	nested := toBSON(dao.Filter{"$or": []any{map[string]any{"a": 1}}})
	assert.Equal(t, bson.M{"$or": bson.A{bson.M{"a": 1}}}, nested)
}

func TestPlain(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got := plain(bson.M{
		"_id":  oid,
		"at":   primitive.NewDateTimeFromTime(when),
		"tags": bson.A{"a", bson.D{{Key: "k", Value: "v"}}},
		"meta": bson.M{"n": int32(1)},
	})
	assert.Equal(t, map[string]any{
		"_id":  oid,
		"at":   when,
		"tags": []any{"a", map[string]any{"k": "v"}},
		"meta": map[string]any{"n": int32(1)},
	}, got)
}

type person struct {
	Name string `bson:"name"`
	Age  int    `bson:"age"`
}

func TestDecode(t *testing.T) {
	p, err := Decode[person](dao.Document{"name": "ada", "age": 36})
	require.NoError(t, err)
	assert.Equal(t, person{Name: "ada", Age: 36}, p)

	all, err := DecodeAll[person]([]dao.Document{{"name": "bob"}, {"name": "cyd"}})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestIDStrategies(t *testing.T) {
	oid, ok := ObjectIDStrategy{}.GenerateID().(primitive.ObjectID)
	require.True(t, ok)
	assert.False(t, oid.IsZero())

	stored, err := ObjectIDStrategy{}.ToStorageFormat(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, stored)

	_, err = ObjectIDStrategy{}.ToStorageFormat("invalid-id")
	assert.Error(t, err)

	id, ok := StringIDStrategy{}.GenerateID().(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)
	_, err = StringIDStrategy{}.ToStorageFormat(123)
	assert.Error(t, err)
}

func TestStorageFilter(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	out, err := storageFilter(dao.Eq("_id", a.Hex()), ObjectIDStrategy{})
	require.NoError(t, err)
	assert.Equal(t, a, out["_id"])

	out, err = storageFilter(dao.In("_id", a.Hex(), b.Hex()), ObjectIDStrategy{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$in": []any{a, b}}, out["_id"])

	in := dao.Eq("name", "x")
	out, err = storageFilter(in, ObjectIDStrategy{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any(in), out)

	_, err = storageFilter(dao.Eq("_id", "nope"), ObjectIDStrategy{})
	assert.Error(t, err)

	out, err = storageFilter(dao.And(dao.Eq("_id", a.Hex()), dao.Eq("status", "active")), ObjectIDStrategy{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$and": []any{
		map[string]any{"_id": a},
		map[string]any{"status": "active"},
	}}, out)

	out, err = storageFilter(dao.Eq("_id", a.Hex()).With(dao.Ne("_id", b.Hex())), ObjectIDStrategy{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$and": []any{
		map[string]any{"_id": a},
		map[string]any{"_id": map[string]any{"$ne": b}},
	}}, out)

	out, err = storageFilter(map[string]any{"$nor": []any{
		map[string]any{"$or": []any{dao.Filter{"_id": b.Hex()}}},
	}}, ObjectIDStrategy{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$nor": []any{
		map[string]any{"$or": []any{map[string]any{"_id": b}}},
	}}, out)

	_, err = storageFilter(dao.Or(dao.Eq("_id", "nope")), ObjectIDStrategy{})
	assert.Error(t, err)
}
