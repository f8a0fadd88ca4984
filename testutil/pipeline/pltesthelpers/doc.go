// Package pltesthelpers provides test utilities and fixtures for the query pipeline.
//
// Queries:
//
//	GetGreeting, GetFarewell: minimal queries with one field
//
// Handlers:
//
//	GreetingHandler: sync and cancellable handler with a configurable result, error, and fallback
//	AsyncOnlyHandler: handler without a blocking form
//	BlockingHandler: handler that waits until its context is done
//
// Decorators:
//
//	RecordingDecorator: appends enter/exit markers to a CallLog
//
// Factories:
//
//	FactorySpy: counts creations and releases per type, records release order, injects failures
//
// Setup:
//
//	GivenProcessor: builds a Processor from a Builder and fails the test on error
//	TextSerializer: a serializer rendering Go type and fields
package pltesthelpers
