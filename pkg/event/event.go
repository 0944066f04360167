// pkg/event/event.go
package event

import (
	"sync"

	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// Type represents the type of event
type Type string

// Match event types
const (
	GoalScored      Type = "goal_scored"
	BallStruck      Type = "ball_struck"
	EntitiesReset   Type = "entities_reset"
	MatchStarted    Type = "match_started"
	MatchStopped    Type = "match_stopped"
	SpectatorJoined Type = "spectator_joined"
	SpectatorLeft   Type = "spectator_left"
	FrameRejected   Type = "frame_rejected"
	FrameSimulated  Type = "frame_simulated"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler and removes it when cancelled
type Subscription struct {
	ID     uint64
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching.
// Handlers run synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// Specific event implementations

// GoalEvent reports the ball entering a goal aperture
type GoalEvent struct {
	BaseEvent
	Side     physics.GoalSide
	Position physics.Vector3
	Frame    uint64
}

// NewGoalEvent creates a new goal event
func NewGoalEvent(source interface{}, side physics.GoalSide, position physics.Vector3, frame uint64) *GoalEvent {
	return &GoalEvent{
		BaseEvent: BaseEvent{
			EventType: GoalScored,
			Source:    source,
		},
		Side:     side,
		Position: position,
		Frame:    frame,
	}
}

// StrikeEvent reports the car launching the ball
type StrikeEvent struct {
	BaseEvent
	CarSpeed     float64
	BallVelocity physics.Vector3
	Frame        uint64
}

// NewStrikeEvent creates a new ball strike event
func NewStrikeEvent(source interface{}, carSpeed float64, ballVelocity physics.Vector3, frame uint64) *StrikeEvent {
	return &StrikeEvent{
		BaseEvent: BaseEvent{
			EventType: BallStruck,
			Source:    source,
		},
		CarSpeed:     carSpeed,
		BallVelocity: ballVelocity,
		Frame:        frame,
	}
}

// ResetReason explains why the entities were reset
type ResetReason string

const (
	ResetGoal   ResetReason = "goal"
	ResetManual ResetReason = "manual"
)

// ResetEvent reports both entities returning to their spawn points
type ResetEvent struct {
	BaseEvent
	Reason ResetReason
	Frame  uint64
}

// NewResetEvent creates a new reset event
func NewResetEvent(source interface{}, reason ResetReason, frame uint64) *ResetEvent {
	return &ResetEvent{
		BaseEvent: BaseEvent{
			EventType: EntitiesReset,
			Source:    source,
		},
		Reason: reason,
		Frame:  frame,
	}
}

// FrameEvent reports a simulated or rejected frame step
type FrameEvent struct {
	BaseEvent
	DeltaTime float64
	Frame     uint64
}

// NewFrameEvent creates a new frame event
func NewFrameEvent(eventType Type, source interface{}, deltaTime float64, frame uint64) *FrameEvent {
	return &FrameEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		DeltaTime: deltaTime,
		Frame:     frame,
	}
}

// SpectatorEvent reports a remote viewer connecting or disconnecting
type SpectatorEvent struct {
	BaseEvent
	SessionID string
}

// NewSpectatorEvent creates a new spectator event
func NewSpectatorEvent(eventType Type, source interface{}, sessionID string) *SpectatorEvent {
	return &SpectatorEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		SessionID: sessionID,
	}
}
