package monitor

import (
	"time"

	"swapcycle/internal/swap"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventSwapAttempt EventType = "swap_attempt"
	EventRunSummary  EventType = "run_summary"
	EventError       EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SwapAttemptPayload 记录单次兑换尝试。
type SwapAttemptPayload struct {
	Result swap.AttemptResult `json:"result"`
}

// RunSummaryPayload 记录批次汇总。
type RunSummaryPayload struct {
	Summary swap.Summary `json:"summary"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
