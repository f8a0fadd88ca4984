package testdoubles

import (
	"sync"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// LoggerSpy captures basic logging calls for testing.
type LoggerSpy struct {
	records []SpyLogRecord
	mu      sync.Mutex
}

// NewLoggerSpy creates a new LoggerSpy instance.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{}
}

// Debug implements querypipeline.Logger.
func (s *LoggerSpy) Debug(msg string, args ...any) { s.record("debug", msg, args) }

// Info implements querypipeline.Logger.
func (s *LoggerSpy) Info(msg string, args ...any) { s.record("info", msg, args) }

// Warn implements querypipeline.Logger.
func (s *LoggerSpy) Warn(msg string, args ...any) { s.record("warn", msg, args) }

// Error implements querypipeline.Logger.
func (s *LoggerSpy) Error(msg string, args ...any) { s.record("error", msg, args) }

func (s *LoggerSpy) record(level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, SpyLogRecord{
		Level:   level,
		Message: msg,
		Args:    append([]any(nil), args...),
	})
}

// GetRecords returns a copy of all records in call order.
func (s *LoggerSpy) GetRecords() []SpyLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyLogRecord(nil), s.records...)
}

// GetRecordsForMessage returns all records with the given message in call order.
func (s *LoggerSpy) GetRecordsForMessage(message string) []SpyLogRecord {
	return filterByMessage(s.GetRecords(), message)
}

// HasLog checks if a log with the specified level and message exists.
func (s *LoggerSpy) HasLog(level, message string) bool {
	for _, record := range s.GetRecordsForMessage(message) {
		if record.Level == level {
			return true
		}
	}

	return false
}

var _ querypipeline.Logger = (*LoggerSpy)(nil)
