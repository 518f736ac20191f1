// Package metrics exposes DAO faults and HTTP traffic as Prometheus series.
package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"github.com/prometheus/client_golang/prometheus"
)

// FaultReporter counts store faults per operation and collection before
// handing them to the next reporter.
type FaultReporter struct {
	faults *prometheus.CounterVec
	next   dao.Reporter
}

// NewReporter registers dao_store_faults_total on reg. next may be nil.
func NewReporter(reg prometheus.Registerer, next dao.Reporter) (*FaultReporter, error) {
	r := &FaultReporter{
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dao_store_faults_total",
				Help: "Total number of store faults raised by DAO operations.",
			},
			[]string{"op", "collection"},
		),
		next: next,
	}
	if err := reg.Register(r.faults); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FaultReporter) Report(fault *dao.StoreFault, severity dao.Severity) {
	r.faults.WithLabelValues(fault.Op, fault.Collection).Inc()
	if r.next != nil {
		r.next.Report(fault, severity)
	}
}

// RequestCounter counts served HTTP requests by method, route and status.
type RequestCounter struct {
	requests *prometheus.CounterVec
}

func NewRequestCounter(reg prometheus.Registerer) (*RequestCounter, error) {
	m := &RequestCounter{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
	}
	if err := reg.Register(m.requests); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler returns the gin middleware. /metrics itself is not counted.
func (m *RequestCounter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		m.requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
