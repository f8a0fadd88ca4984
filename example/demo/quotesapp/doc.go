// Package quotesapp wires the quotes example into a query pipeline.
//
// NewProcessor registers the random quote handler and the decorator chain below, outermost first:
//
//	QueryLogging    global    logs every query with its serialized form and the fallback annotation
//	FallbackPolicy  handler   substitutes the handler's fallback quote when the chain fails
//	ResultCache     query     serves and stores quotes in a cachestore.Store (only with a store)
//	Timeout         query     bounds one invocation
//	Retry           query     retries transient source failures
//	PanicRecovery   handler   turns handler panics into errors the fallback can intercept
//	Instrumentation handler   measures the handler alone
package quotesapp
