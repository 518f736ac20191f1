package dao_server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mattiabonardi/endor-dao-go/pkg/memstore"
	"go.mongodb.org/mongo-driver/mongo"
)

// ServerError carries the status an error is answered with.
type ServerError struct {
	StatusCode  int
	InternalErr error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%v", e.InternalErr)
}

func (e *ServerError) Unwrap() error {
	return e.InternalErr
}

// Factories
func NewBadRequestError(err error) *ServerError {
	return &ServerError{StatusCode: http.StatusBadRequest, InternalErr: err}
}

func NewConflictError(err error) *ServerError {
	return &ServerError{StatusCode: http.StatusConflict, InternalErr: err}
}

func NewInternalServerError(err error) *ServerError {
	return &ServerError{StatusCode: http.StatusInternalServerError, InternalErr: err}
}

func NewGatewayTimeoutError(err error) *ServerError {
	return &ServerError{StatusCode: http.StatusGatewayTimeout, InternalErr: err}
}

// classify picks the status for an error coming out of a DAO call. Store
// faults default to 500.
func classify(err error) *ServerError {
	var serverErr *ServerError
	switch {
	case errors.As(err, &serverErr):
		return serverErr
	case errors.Is(err, memstore.ErrDuplicateKey), mongo.IsDuplicateKeyError(err):
		return NewConflictError(err)
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return NewGatewayTimeoutError(err)
	default:
		return NewInternalServerError(err)
	}
}

// ThrowError answers err with the envelope and the status classify picks.
func ThrowError(c *gin.Context, err error) {
	serverErr := classify(err)
	Notice(serverErr.StatusCode, GravityError, "%s", err.Error()).Abort(c)
}

func ThrowBadRequest(c *gin.Context, err error) {
	ThrowError(c, NewBadRequestError(err))
}
