package dao_test

import (
	"errors"
	"testing"

	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"github.com/stretchr/testify/assert"
)

func TestFilterConstructors(t *testing.T) {
	assert.Equal(t, dao.Filter{"age": map[string]any{"$gt": 3}}, dao.Gt("age", 3))
	assert.Equal(t, dao.Filter{"tag": map[string]any{"$in": []any{"a", "b"}}}, dao.In("tag", "a", "b"))
	assert.Equal(t, dao.Filter{"x": map[string]any{"$exists": false}}, dao.HasField("x", false))
	assert.Equal(t, dao.Filter{"$or": []any{
		map[string]any{"a": 1},
		map[string]any{"b": 2},
	}}, dao.Or(dao.Eq("a", 1), dao.Eq("b", 2)))
}

func TestFilterWith(t *testing.T) {
	assert.Equal(t, dao.Filter{"a": 1, "b": 2}, dao.Eq("a", 1).With(dao.Eq("b", 2)))
	assert.Equal(t, dao.Eq("b", 2), dao.Filter(nil).With(dao.Eq("b", 2)))

	clash := dao.Gt("a", 1).With(dao.Lt("a", 5))
	assert.Contains(t, clash, "$and")
}

func TestParseFields(t *testing.T) {
	assert.Equal(t, dao.Fields{"name": 1, "email": 1, "password": 0}, dao.ParseFields("name email -password"))
	assert.Nil(t, dao.ParseFields("  "))
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, dao.SortOrder{
		{Field: "createdAt", Direction: dao.Desc},
		{Field: "name", Direction: dao.Asc},
	}, dao.ParseSort("-createdAt name"))
}

func TestAsUpdate(t *testing.T) {
	assert.Equal(t, dao.Document{"$set": map[string]any{"a": 1}}, dao.AsUpdate(dao.Document{"a": 1}))
	inc := dao.Document{"$inc": map[string]any{"a": 1}}
	assert.Equal(t, inc, dao.AsUpdate(inc))
}

func TestResult(t *testing.T) {
	var zero dao.Result[dao.Document]
	assert.True(t, zero.IsNotFound())

	empty := dao.Found(dao.Document{})
	assert.True(t, empty.IsFound(), "an empty document is still a match")
	assert.Equal(t, "Found({})", empty.String())
	assert.Equal(t, "NotFound", dao.NotFound[int64]().String())
	assert.Equal(t, int64(7), dao.NotFound[int64]().OrElse(7))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "Success", dao.Success.String())
	assert.Equal(t, "Failure", dao.Failure.String())
}

func TestStoreFaultUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	fault := &dao.StoreFault{Op: "Find", Collection: "users", Err: cause}
	assert.ErrorIs(t, fault, cause)
	assert.Equal(t, `Find on "users": timeout`, fault.Error())
}
