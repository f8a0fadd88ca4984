package pltesthelpers

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// CallLog collects call markers in order.
type CallLog struct {
	mu      sync.Mutex
	entries []string
}

// Add appends an entry. A nil CallLog discards it.
func (l *CallLog) Add(entry string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
}

// Entries returns a copy of all entries.
func (l *CallLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.entries...)
}

// RecordingDecorator appends "<name>:enter" and "<name>:exit" around the inner chain.
type RecordingDecorator struct {
	name   string
	log    *CallLog
	params []any
	rc     *querypipeline.RequestContext
}

// NewRecordingDecorator returns a constructor for RecordingDecorators writing to log.
func NewRecordingDecorator(log *CallLog, name string) querypipeline.DecoratorConstructor {
	return func() (querypipeline.Decorator, error) {
		return &RecordingDecorator{name: name, log: log}, nil
	}
}

// Around implements querypipeline.Decorator.
func (d *RecordingDecorator) Around(
	ctx context.Context,
	query querypipeline.Query,
	next querypipeline.Next,
	_ querypipeline.Next,
) (any, error) {
	d.log.Add(d.name + ":enter")
	defer d.log.Add(d.name + ":exit")

	return next(ctx, query)
}

// AroundSync implements querypipeline.Decorator.
func (d *RecordingDecorator) AroundSync(
	query querypipeline.Query,
	next querypipeline.SyncNext,
	_ querypipeline.SyncNext,
) (any, error) {
	d.log.Add(d.name + ":enter")
	defer d.log.Add(d.name + ":exit")

	return next(query)
}

// InitializeFromParams keeps the params for inspection.
func (d *RecordingDecorator) InitializeFromParams(params []any) error {
	d.params = params
	return nil
}

// SetRequestContext implements querypipeline.ContextAware.
func (d *RecordingDecorator) SetRequestContext(rc *querypipeline.RequestContext) {
	d.rc = rc
}

// Params returns the params the decorator was initialized with.
func (d *RecordingDecorator) Params() []any {
	return d.params
}

// RequestContext returns the injected RequestContext.
func (d *RecordingDecorator) RequestContext() *querypipeline.RequestContext {
	return d.rc
}

var (
	_ querypipeline.Decorator     = (*RecordingDecorator)(nil)
	_ querypipeline.Parameterized = (*RecordingDecorator)(nil)
	_ querypipeline.ContextAware  = (*RecordingDecorator)(nil)
)
