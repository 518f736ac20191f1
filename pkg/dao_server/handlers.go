package dao_server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
)

func (s *Server) find(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	spec, valid := bind[dao.QuerySpec](c)
	if !valid {
		return
	}
	docs, err := s.dao.Find(c.Request.Context(), m, spec)
	if err != nil {
		ThrowError(c, err)
		return
	}
	NewReply[[]dao.Document](http.StatusOK).With(docs).Send(c)
}

func (s *Server) findOne(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	spec, valid := bind[dao.QuerySpec](c)
	if !valid {
		return
	}
	r, err := s.dao.FindOne(c.Request.Context(), m, spec)
	respond(c, r, err)
}

func (s *Server) exists(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	body, valid := bind[ExistsDTO](c)
	if !valid {
		return
	}
	r, err := s.dao.Exists(c.Request.Context(), m, body.Filter, body.Select)
	respond(c, r, err)
}

func (s *Server) existsOne(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	body, valid := bind[ExistsDTO](c)
	if !valid {
		return
	}
	r, err := s.dao.ExistsOne(c.Request.Context(), m, body.Filter, body.Select)
	respond(c, r, err)
}

func (s *Server) count(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	body, valid := bind[FilterDTO](c)
	if !valid {
		return
	}
	r, err := s.dao.Count(c.Request.Context(), m, body.Filter)
	respond(c, r, err)
}

func (s *Server) insert(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	body, valid := bind[InsertDTO](c)
	if !valid {
		return
	}
	doc, err := s.dao.Insert(c.Request.Context(), m, body.Document)
	if err != nil {
		ThrowError(c, err)
		return
	}
	NewReply[dao.Document](http.StatusOK).With(doc).Send(c)
}

func (s *Server) insertMany(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	body, valid := bind[InsertManyDTO](c)
	if !valid {
		return
	}
	docs, err := s.dao.InsertMany(c.Request.Context(), m, body.Documents)
	if err != nil {
		ThrowError(c, err)
		return
	}
	NewReply[[]dao.Document](http.StatusOK).With(docs).Send(c)
}

func (s *Server) findAndUpdate(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	body, valid := bind[UpdateDTO](c)
	if !valid {
		return
	}
	r, err := s.dao.FindAndUpdate(c.Request.Context(), m, body.Filter, body.Update)
	respond(c, r, err)
}

func (s *Server) updateMany(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	body, valid := bind[UpdateDTO](c)
	if !valid {
		return
	}
	r, err := s.dao.UpdateMany(c.Request.Context(), m, body.Filter, body.Update)
	respond(c, r, err)
}

func (s *Server) delete(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	body, valid := bind[FilterDTO](c)
	if !valid {
		return
	}
	outcome, err := s.dao.Delete(c.Request.Context(), m, body.Filter)
	if err != nil {
		ThrowError(c, err)
		return
	}
	reply := NewReply[OutcomeDTO](http.StatusOK).With(OutcomeDTO{Outcome: outcome.String()})
	if outcome == dao.Failure {
		reply.Note(GravityWarning, "delete was not acknowledged by the store")
	}
	reply.Send(c)
}

func (s *Server) aggregate(c *gin.Context) {
	m, valid := s.model(c)
	if !valid {
		return
	}
	body, valid := bind[AggregateDTO](c)
	if !valid {
		return
	}
	r, err := s.dao.Aggregate(c.Request.Context(), m, body.Pipeline)
	respond(c, r, err)
}
