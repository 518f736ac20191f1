// Package dao_server exposes the DAO operations over HTTP.
package dao_server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"github.com/mattiabonardi/endor-dao-go/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ModelResolver returns the model serving a collection.
type ModelResolver func(collection string) (dao.Model, error)

var ErrInvalidCollection = errors.New("invalid collection name")

type Server struct {
	dao      *dao.DAO
	models   ModelResolver
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	middle   []gin.HandlerFunc
}

type ServerInitializer struct {
	server *Server
}

func NewServerInitializer(d *dao.DAO, models ModelResolver) *ServerInitializer {
	return &ServerInitializer{server: &Server{
		dao:      d,
		models:   models,
		logger:   zap.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}}
}

func (b *ServerInitializer) WithLogger(logger *zap.Logger) *ServerInitializer {
	if logger != nil {
		b.server.logger = logger
	}
	return b
}

// WithGatherer selects the registry served on /metrics.
func (b *ServerInitializer) WithGatherer(g prometheus.Gatherer) *ServerInitializer {
	if g != nil {
		b.server.gatherer = g
	}
	return b
}

func (b *ServerInitializer) WithMiddleware(m ...gin.HandlerFunc) *ServerInitializer {
	b.server.middle = append(b.server.middle, m...)
	return b
}

func (b *ServerInitializer) Build() *Server {
	return b.server
}

// Router builds the gin engine with monitoring and API routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.Use(s.middle...)

	// monitoring
	router.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/livez", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/:collection")
	api.POST("/find", s.find)
	api.POST("/findOne", s.findOne)
	api.POST("/exists", s.exists)
	api.POST("/existsOne", s.existsOne)
	api.POST("/count", s.count)
	api.POST("/insert", s.insert)
	api.POST("/insertMany", s.insertMany)
	api.POST("/findAndUpdate", s.findAndUpdate)
	api.POST("/updateMany", s.updateMany)
	api.POST("/delete", s.delete)
	api.POST("/aggregate", s.aggregate)

	router.NoRoute(func(c *gin.Context) {
		Notice(http.StatusNotFound, GravityFatal, "404 page not found (uri: %s, method: %s)", c.Request.RequestURI, c.Request.Method).Send(c)
	})
	return router
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Next()

		logger := logging.WithContext(s.logger, logging.LogContext{
			Collection: c.Param("collection"),
			Action:     c.Request.Method + " " + c.Request.URL.Path,
			RequestID:  requestID,
		})
		logger.Debug("request served", zap.Int("status", c.Writer.Status()))
	}
}

// model resolves the :collection path parameter, writing a 400 on failure.
func (s *Server) model(c *gin.Context) (dao.Model, bool) {
	name := c.Param("collection")
	if err := validateCollection(name); err != nil {
		ThrowBadRequest(c, err)
		return nil, false
	}
	m, err := s.models(name)
	if err != nil {
		ThrowBadRequest(c, err)
		return nil, false
	}
	return m, true
}

func validateCollection(name string) error {
	if name == "" || strings.ContainsAny(name, "$\x00") || strings.HasPrefix(name, "system.") {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

func bind[T any](c *gin.Context) (T, bool) {
	var body T
	err := c.ShouldBindJSON(&body)
	if errors.Is(err, io.EOF) {
		// an empty body stands for all defaults
		err = binding.Validator.ValidateStruct(&body)
	}
	if err != nil {
		ThrowBadRequest(c, err)
		return body, false
	}
	return body, true
}

// respond writes r through Found, or err through ThrowError.
func respond[T any](c *gin.Context, r dao.Result[T], err error) {
	if err != nil {
		ThrowError(c, err)
		return
	}
	Found(c, r)
}
