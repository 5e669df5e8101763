// Package observation publishes events derived from folding an observation
// into the agent's memory.
package observation

import (
	"context"

	"github.com/overfly42/found-gems/logging"
)

const (
	EventGemCollected    logging.EventType = "observation.gem_collected"
	EventGemLost         logging.EventType = "observation.gem_lost"
	EventBotStalled      logging.EventType = "observation.bot_stalled"
	EventWallsDiscovered logging.EventType = "observation.walls_discovered"
	EventVoidReinstated  logging.EventType = "observation.void_reinstated"
	EventInvalidSignal   logging.EventType = "observation.invalid_signal"
	EventMalformedLine   logging.EventType = "observation.malformed_line"
)

// CellPayload locates a single cell.
type CellPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// GemLostPayload explains why a tracked gem was forgotten.
type GemLostPayload struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Reason string `json:"reason"`
}

// CountPayload reports how many cells an update touched.
type CountPayload struct {
	Count int `json:"count"`
}

type InvalidSignalPayload struct {
	Reading  float64 `json:"reading"`
	Residual float64 `json:"residual"`
	Error    string  `json:"error"`
}

type MalformedLinePayload struct {
	Bytes int    `json:"bytes"`
	Error string `json:"error"`
}

func GemCollected(ctx context.Context, pub logging.Publisher, tick int, payload CellPayload) {
	publish(ctx, pub, tick, EventGemCollected, logging.SeverityInfo, payload, logging.CellRef(logging.EntityKindGem, payload.X, payload.Y))
}

func GemLost(ctx context.Context, pub logging.Publisher, tick int, payload GemLostPayload) {
	publish(ctx, pub, tick, EventGemLost, logging.SeverityDebug, payload, logging.CellRef(logging.EntityKindGem, payload.X, payload.Y))
}

// BotStalled warns that the position did not change since the previous tick.
func BotStalled(ctx context.Context, pub logging.Publisher, tick int, payload CellPayload) {
	publish(ctx, pub, tick, EventBotStalled, logging.SeverityWarn, payload)
}

func WallsDiscovered(ctx context.Context, pub logging.Publisher, tick int, payload CountPayload) {
	publish(ctx, pub, tick, EventWallsDiscovered, logging.SeverityDebug, payload)
}

func VoidReinstated(ctx context.Context, pub logging.Publisher, tick int, payload CellPayload) {
	publish(ctx, pub, tick, EventVoidReinstated, logging.SeverityInfo, payload, logging.CellRef(logging.EntityKindCell, payload.X, payload.Y))
}

func InvalidSignal(ctx context.Context, pub logging.Publisher, tick int, payload InvalidSignalPayload) {
	publish(ctx, pub, tick, EventInvalidSignal, logging.SeverityError, payload)
}

func MalformedLine(ctx context.Context, pub logging.Publisher, tick int, payload MalformedLinePayload) {
	publish(ctx, pub, tick, EventMalformedLine, logging.SeverityWarn, payload)
}

func publish(ctx context.Context, pub logging.Publisher, tick int, eventType logging.EventType, severity logging.Severity, payload any, targets ...logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    logging.Bot(),
		Targets:  targets,
		Severity: severity,
		Category: logging.CategoryObservation,
		Payload:  payload,
	})
}
