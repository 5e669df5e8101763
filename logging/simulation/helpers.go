package simulation

import (
	"context"

	"github.com/overfly42/found-gems/logging"
)

const (
	// EventTickBudgetOverrun is emitted when deciding a move took longer than the configured budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
	Fills          int     `json:"fills"`
}

// TickBudgetOverrun publishes a warning when a tick exceeds the configured budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick int, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.Bot(),
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
