// Package batch runs a single-entity operation over an ordered list of
// items and collects one result per item.
//
// Items are processed strictly in input order and a failing item never
// stops the ones after it. The aggregate code is OK only when every item
// succeeded; otherwise it is ListFailure. A panic inside the operation
// abandons the batch: later items are not attempted and no report is
// produced.
package batch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/stratisd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// Result is the outcome for one item
type Result struct {
	Key     string      `json:"key"`
	Path    string      `json:"path"`
	Code    status.Code `json:"code"`
	Message string      `json:"message"`
}

// OK reports whether the item succeeded
func (r Result) OK() bool {
	return r.Code == status.OK
}

// Report is the ordered outcome of a batch
type Report struct {
	Results []Result    `json:"results"`
	Code    status.Code `json:"code"`
	Message string      `json:"message"`
}

// SuccessCount returns the number of items that succeeded
func (r *Report) SuccessCount() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// FailureCount returns the number of items that failed
func (r *Report) FailureCount() int {
	return len(r.Results) - r.SuccessCount()
}

// Executor carries the ambient dependencies of a batch run
type Executor struct {
	name    string
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewExecutor creates an executor labelled name in logs and metrics
func NewExecutor(name string, logger *zap.Logger, metrics *monitoring.Metrics) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{name: name, logger: logger, metrics: metrics}
}

// Name returns the executor's label
func (e *Executor) Name() string {
	return e.name
}

// Execute applies op to each item in order. key names an item in its
// result; op returns the path (or other identifier) of the entity it
// touched.
func Execute[T any](e *Executor, items []T, key func(T) string, op func(T) (string, error)) (report *Report, err error) {
	report = &Report{Results: make([]Result, 0, len(items))}

	defer func() {
		if r := recover(); r != nil {
			done := len(report.Results)
			e.logger.Error("batch abandoned",
				zap.String("op", e.name),
				zap.Int("completed", done),
				zap.Int("total", len(items)),
				zap.Any("panic", r))
			report = nil
			err = status.Errorf(status.Error, "%s abandoned after %d of %d items: %v", e.name, done, len(items), r)
		}
	}()

	for _, item := range items {
		k := key(item)
		path, opErr := op(item)

		res := Result{Key: k, Path: path, Code: status.CodeOf(opErr), Message: status.Message(opErr)}
		report.Results = append(report.Results, res)
		e.metrics.RecordBatchItem(e.name, res.Code.String())

		if opErr != nil {
			e.logger.Debug("batch item failed",
				zap.String("op", e.name),
				zap.String("key", k),
				zap.Stringer("code", res.Code),
				zap.Error(opErr))
		}
	}

	if failed := report.FailureCount(); failed > 0 {
		report.Code = status.ListFailure
		report.Message = fmt.Sprintf("%d of %d items failed", failed, len(items))
	} else {
		report.Code = status.OK
		report.Message = status.OK.Description()
	}
	return report, nil
}
