package eventmodels

import "time"

// TaskTerminalEvent is published once per task when it reaches a terminal
// state, whatever that state is.
type TaskTerminalEvent struct {
	Symbol StockSymbol
	State  TaskState
	Reason string
	At     time.Time
}
