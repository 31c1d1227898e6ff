package audit

import "time"

// Entry is one stored gateway exchange.
type Entry struct {
	ID            int64             `json:"id"`
	RequestID     string            `json:"requestId"`
	ClientID      string            `json:"clientId"`
	Operation     string            `json:"operation"`
	Method        string            `json:"method"`
	URL           string            `json:"url"`
	RequestFields map[string]string `json:"requestFields"`
	ResponseBody  string            `json:"responseBody,omitempty"`
	ErrorKind     string            `json:"errorKind,omitempty"`
	ErrorMessage  string            `json:"errorMessage,omitempty"`
	LatencyMS     int64             `json:"latencyMs"`
	OccurredAt    time.Time         `json:"occurredAt"`
}
