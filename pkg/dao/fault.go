package dao

import (
	"fmt"

	"go.uber.org/zap"
)

// Severity of a reported fault.
type Severity string

const (
	SeverityDebug Severity = "DEBUG"
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// StoreFault describes an error raised by the store while an operation ran.
// It is what reporters receive; callers get Err itself, unchanged.
type StoreFault struct {
	Op         string
	Collection string
	Err        error
}

func (f *StoreFault) Error() string {
	return fmt.Sprintf("%s on %q: %v", f.Op, f.Collection, f.Err)
}

func (f *StoreFault) Unwrap() error {
	return f.Err
}

// Reporter observes faults. It must not panic and has no say in the outcome.
type Reporter interface {
	Report(fault *StoreFault, severity Severity)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(fault *StoreFault, severity Severity)

func (f ReporterFunc) Report(fault *StoreFault, severity Severity) {
	f(fault, severity)
}

// ZapReporter logs faults through a zap logger.
type ZapReporter struct {
	logger *zap.Logger
}

func NewZapReporter(logger *zap.Logger) *ZapReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapReporter{logger: logger}
}

func (r *ZapReporter) Report(fault *StoreFault, severity Severity) {
	fields := []zap.Field{
		zap.String("op", fault.Op),
		zap.String("collection", fault.Collection),
		zap.Error(fault.Err),
	}
	switch severity {
	case SeverityDebug:
		r.logger.Debug("store fault", fields...)
	case SeverityInfo:
		r.logger.Info("store fault", fields...)
	case SeverityWarn:
		r.logger.Warn("store fault", fields...)
	default:
		r.logger.Error("store fault", fields...)
	}
}

// guard is the error boundary shared by every operation: a failing call is
// reported once and its error is returned to the caller untouched.
func guard[T any](d *DAO, op string, m Model, call func() (T, error)) (T, error) {
	v, err := call()
	if err != nil {
		d.reporter.Report(&StoreFault{Op: op, Collection: m.Collection(), Err: err}, SeverityError)
		var zero T
		return zero, err
	}
	return v, nil
}
