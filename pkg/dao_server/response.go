package dao_server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
)

// Gravity ranks a message attached to a reply.
type Gravity string

const (
	GravityInfo    Gravity = "Info"
	GravityWarning Gravity = "Warning"
	GravityError   Gravity = "Error"
	GravityFatal   Gravity = "Fatal"
)

type Message struct {
	Gravity Gravity `json:"gravity"`
	Value   string  `json:"value"`
}

// Envelope is the body of every API answer. Data is null on misses and errors.
type Envelope[T any] struct {
	Messages []Message `json:"messages"`
	Data     *T        `json:"data"`
}

// Reply collects an Envelope together with the status it is written with.
type Reply[T any] struct {
	status int
	body   Envelope[T]
}

func NewReply[T any](status int) *Reply[T] {
	return &Reply[T]{status: status, body: Envelope[T]{Messages: []Message{}}}
}

// Notice starts a reply that carries a single message and no data.
func Notice(status int, gravity Gravity, format string, args ...any) *Reply[struct{}] {
	return NewReply[struct{}](status).Note(gravity, format, args...)
}

func (r *Reply[T]) With(data T) *Reply[T] {
	r.body.Data = &data
	return r
}

func (r *Reply[T]) Note(gravity Gravity, format string, args ...any) *Reply[T] {
	r.body.Messages = append(r.body.Messages, Message{Gravity: gravity, Value: fmt.Sprintf(format, args...)})
	return r
}

func (r *Reply[T]) Send(c *gin.Context) {
	c.JSON(r.status, &r.body)
}

// Abort sends the reply and stops the handler chain.
func (r *Reply[T]) Abort(c *gin.Context) {
	c.AbortWithStatusJSON(r.status, &r.body)
}

// Found answers 200 with the value of result, or 404 when nothing matched.
func Found[T any](c *gin.Context, result dao.Result[T]) {
	v, found := result.Value()
	if !found {
		Notice(http.StatusNotFound, GravityInfo, "no document matches").Send(c)
		return
	}
	NewReply[T](http.StatusOK).With(v).Send(c)
}
