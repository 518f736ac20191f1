package dao_server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordReply(t *testing.T, write func(c *gin.Context)) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	write(c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestReplyCarriesDataAndNotes(t *testing.T) {
	code, body := recordReply(t, func(c *gin.Context) {
		NewReply[OutcomeDTO](http.StatusOK).
			With(OutcomeDTO{Outcome: dao.Failure.String()}).
			Note(GravityWarning, "delete was not acknowledged by the store").
			Send(c)
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"outcome": "Failure"}, body["data"])
	assert.Equal(t, []any{map[string]any{"gravity": "Warning", "value": "delete was not acknowledged by the store"}}, body["messages"])
}

func TestFound(t *testing.T) {
	code, body := recordReply(t, func(c *gin.Context) {
		Found(c, dao.Found(int64(3)))
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3.0, body["data"])
	assert.Equal(t, []any{}, body["messages"])

	code, body = recordReply(t, func(c *gin.Context) {
		Found(c, dao.NotFound[int64]())
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Nil(t, body["data"])
	assert.Len(t, body["messages"], 1)
}

func TestNoticeAborts(t *testing.T) {
	code, body := recordReply(t, func(c *gin.Context) {
		Notice(http.StatusBadRequest, GravityError, "bad %s", "input").Abort(c)
		assert.True(t, c.IsAborted())
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []any{map[string]any{"gravity": "Error", "value": "bad input"}}, body["messages"])
}
