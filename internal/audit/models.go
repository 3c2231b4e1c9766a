package audit

import "time"

// Event captures one registry interaction or lifecycle action for audit.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Action       string         `json:"action"`
	Endpoint     string         `json:"endpoint,omitempty"`
	Method       string         `json:"method,omitempty"`
	StatusCode   int            `json:"status_code,omitempty"`
	RequestBody  string         `json:"request_body,omitempty"`
	ResponseBody string         `json:"response_body,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
}
