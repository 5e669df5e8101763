package logging

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type EventType string

// Severity is ordered; filtering compares against a minimum.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity accepts the names produced by String, case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return SeverityDebug, nil
	case "info":
		return SeverityInfo, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", name)
	}
}

type EntityKind string

const (
	EntityKindUnknown  EntityKind = "unknown"
	EntityKindBot      EntityKind = "bot"
	EntityKindOpponent EntityKind = "opponent"
	EntityKindGem      EntityKind = "gem"
	EntityKindCell     EntityKind = "cell"
	EntityKindGame     EntityKind = "game"
)

type Event struct {
	Type     EventType      `json:"type"`
	Tick     int            `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	TraceID  string         `json:"traceId,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// Bot is the agent itself.
func Bot() EntityRef {
	return EntityRef{ID: "self", Kind: EntityKindBot}
}

// CellRef names a board cell.
func CellRef(kind EntityKind, x, y int) EntityRef {
	return EntityRef{ID: fmt.Sprintf("%d,%d", x, y), Kind: kind}
}

const (
	CategoryObservation = "observation"
	CategoryDecision    = "decision"
	CategoryLifecycle   = "lifecycle"
	CategorySystem      = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

// fieldPublisher stamps default extra fields and an optional trace id.
type fieldPublisher struct {
	next    Publisher
	fields  map[string]any
	traceID string
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	if event.TraceID == "" {
		event.TraceID = p.traceID
	}
	if len(p.fields) > 0 {
		event = event.clone()
		event.mergeExtra(p.fields)
	}
	p.next.Publish(ctx, event)
}

// WithFields wraps p so every event carries fields unless it sets them itself.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	return &fieldPublisher{next: p, fields: copyFields(fields)}
}

// WithTrace wraps p so every event without a trace id gets traceID.
func WithTrace(p Publisher, traceID string) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if traceID == "" {
		return p
	}
	return &fieldPublisher{next: p, traceID: traceID}
}

func (e Event) WithExtra(key string, value any) Event {
	e = e.clone()
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}

func (e Event) clone() Event {
	cloned := e
	if len(e.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), e.Targets...)
	}
	if e.Extra != nil {
		cloned.Extra = copyFields(e.Extra)
	}
	return cloned
}

func (e *Event) mergeExtra(fields map[string]any) {
	if e.Extra == nil {
		e.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if _, exists := e.Extra[k]; !exists {
			e.Extra[k] = v
		}
	}
}

func copyFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return copied
}
