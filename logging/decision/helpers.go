package decision

import (
	"context"

	"github.com/overfly42/found-gems/logging"
)

const (
	// EventCyclingDetected is emitted on the tick oscillation is first flagged.
	EventCyclingDetected logging.EventType = "decision.cycling_detected"
	// EventCyclingCleared is emitted when the field parameters return to defaults.
	EventCyclingCleared logging.EventType = "decision.cycling_cleared"
	// EventTargetUnreachable is emitted when a target is recorded as void.
	EventTargetUnreachable logging.EventType = "decision.target_unreachable"
	// EventCandidatesPruned reports signal candidates dropped this tick.
	EventCandidatesPruned logging.EventType = "decision.candidates_pruned"
	// EventNoEligibleMove is emitted when every neighbour is blocked and the bot waits.
	EventNoEligibleMove logging.EventType = "decision.no_eligible_move"
	// EventEmptyField is emitted when no target influenced the field.
	EventEmptyField logging.EventType = "decision.empty_field"
	// EventMoveChosen records the per-tick decision at debug level.
	EventMoveChosen logging.EventType = "decision.move_chosen"
)

// CyclingPayload describes the oscillation and the adjusted parameters.
type CyclingPayload struct {
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Occurrences  int     `json:"occurrences"`
	Decay        float64 `json:"decay"`
	StopDistance int     `json:"stopDistance"`
	AgesReduced  int     `json:"agesReduced"`
}

// UnreachablePayload names the void target.
type UnreachablePayload struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Kind string `json:"kind"`
}

// PrunedPayload counts dropped candidates per reason.
type PrunedPayload struct {
	Reasons   map[string]int `json:"reasons"`
	Remaining int            `json:"remaining"`
}

// NoEligibleMovePayload records where the bot got boxed in.
type NoEligibleMovePayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// EmptyFieldPayload captures the failed composition.
type EmptyFieldPayload struct {
	Targets     int `json:"targets"`
	Unreachable int `json:"unreachable"`
}

// MoveChosenPayload is the full per-tick decision summary.
type MoveChosenPayload struct {
	Move      string     `json:"move"`
	Neighbors [4]float64 `json:"neighbors"`
	Targets   int        `json:"targets"`
	Fills     int        `json:"fills"`
}

// CyclingDetected publishes a warning when the agent starts oscillating.
func CyclingDetected(ctx context.Context, pub logging.Publisher, tick int, payload CyclingPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCyclingDetected,
		Tick:     tick,
		Actor:    logging.Bot(),
		Targets:  []logging.EntityRef{logging.CellRef(logging.EntityKindCell, payload.X, payload.Y)},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryDecision,
		Payload:  payload,
		Extra:    extra,
	})
}

// CyclingCleared publishes an info event when oscillation stops.
func CyclingCleared(ctx context.Context, pub logging.Publisher, tick int, payload CyclingPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCyclingCleared,
		Tick:     tick,
		Actor:    logging.Bot(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDecision,
		Payload:  payload,
		Extra:    extra,
	})
}

// TargetUnreachable publishes the void marking of a target.
func TargetUnreachable(ctx context.Context, pub logging.Publisher, tick int, payload UnreachablePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTargetUnreachable,
		Tick:     tick,
		Actor:    logging.Bot(),
		Targets:  []logging.EntityRef{logging.CellRef(logging.EntityKindCell, payload.X, payload.Y)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDecision,
		Payload:  payload,
		Extra:    extra,
	})
}

// CandidatesPruned publishes the candidate cleanup summary.
func CandidatesPruned(ctx context.Context, pub logging.Publisher, tick int, payload PrunedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCandidatesPruned,
		Tick:     tick,
		Actor:    logging.Bot(),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryDecision,
		Payload:  payload,
		Extra:    extra,
	})
}

// NoEligibleMove publishes the WAIT fallback.
func NoEligibleMove(ctx context.Context, pub logging.Publisher, tick int, payload NoEligibleMovePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventNoEligibleMove,
		Tick:     tick,
		Actor:    logging.Bot(),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryDecision,
		Payload:  payload,
		Extra:    extra,
	})
}

// EmptyField publishes the invariant violation before it is returned as an error.
func EmptyField(ctx context.Context, pub logging.Publisher, tick int, payload EmptyFieldPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEmptyField,
		Tick:     tick,
		Actor:    logging.Bot(),
		Severity: logging.SeverityError,
		Category: logging.CategoryDecision,
		Payload:  payload,
		Extra:    extra,
	})
}

// MoveChosen publishes the decision at debug level.
func MoveChosen(ctx context.Context, pub logging.Publisher, tick int, payload MoveChosenPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMoveChosen,
		Tick:     tick,
		Actor:    logging.Bot(),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryDecision,
		Payload:  payload,
		Extra:    extra,
	})
}
