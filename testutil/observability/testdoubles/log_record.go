package testdoubles

import "context"

// SpyLogRecord represents a recorded log call.
type SpyLogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

// Attr returns the value logged for key and whether it was present.
func (r SpyLogRecord) Attr(key string) (any, bool) {
	for i := 0; i+1 < len(r.Args); i += 2 {
		if k, ok := r.Args[i].(string); ok && k == key {
			return r.Args[i+1], true
		}
	}

	return nil, false
}

func filterByMessage(records []SpyLogRecord, message string) []SpyLogRecord {
	filtered := make([]SpyLogRecord, 0)
	for _, record := range records {
		if record.Message == message {
			filtered = append(filtered, record)
		}
	}

	return filtered
}
