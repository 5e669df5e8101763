package lifecycle

import (
	"context"

	"github.com/overfly42/found-gems/logging"
)

const (
	// EventAgentStarted is emitted once the first observation has configured the agent.
	EventAgentStarted logging.EventType = "lifecycle.agent_started"
	// EventGameFinished is emitted when the observation stream ends.
	EventGameFinished logging.EventType = "lifecycle.game_finished"
)

// AgentStartedPayload captures the game configuration the agent runs with.
type AgentStartedPayload struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	MaxTicks     int     `json:"maxTicks"`
	VisRadius    int     `json:"visRadius"`
	MaxGems      int     `json:"maxGems"`
	GemTTL       int     `json:"gemTtl"`
	EmitSignals  bool    `json:"emitSignals"`
	SignalRadius float64 `json:"signalRadius"`
	Strategy     string  `json:"strategy"`
	Workers      int     `json:"workers"`
}

// GameFinishedPayload summarises a completed game.
type GameFinishedPayload struct {
	Ticks         int    `json:"ticks"`
	GemsCollected int    `json:"gemsCollected"`
	Reason        string `json:"reason"`
}

// AgentStarted publishes the agent start event.
func AgentStarted(ctx context.Context, pub logging.Publisher, tick int, payload AgentStartedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAgentStarted,
		Tick:     tick,
		Actor:    logging.Bot(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// GameFinished publishes the end-of-game summary.
func GameFinished(ctx context.Context, pub logging.Publisher, tick int, payload GameFinishedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventGameFinished,
		Tick:     tick,
		Actor:    logging.Bot(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
