package domain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event type names
const (
	EventChallengeCompleted = "challenge.completed"
	EventDayCompleted       = "day.completed"
	EventQuizScored         = "quiz.scored"
	EventXPAwarded          = "xp.awarded"
	EventLevelUp            = "level.up"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a progress event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
	// Learner returns the learner whose progress changed
	Learner() string
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	LearnerID string    `json:"learner_id"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType, learnerID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: at,
		LearnerID: learnerID,
	}
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Learner() string       { return e.LearnerID }

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes progress events
type EventHandler func(ctx context.Context, event Event) error

// EventDispatcher fans events out to subscribed handlers
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to every matching handler. All handlers run;
// their errors are joined.
func (d *EventDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler(nil), d.handlers[event.EventType()]...)
	handlers = append(handlers, d.allHandlers...)
	d.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------
// Progress Events
// -----------------------------------------------------------------------------

// ChallengeCompletedEvent is published when a challenge joins the completed set
type ChallengeCompletedEvent struct {
	BaseEvent
	ChallengeID string `json:"challenge_id"`
}

// NewChallengeCompletedEvent creates a new challenge completed event
func NewChallengeCompletedEvent(learnerID, challengeID string, at time.Time) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCompleted, learnerID, at),
		ChallengeID: challengeID,
	}
}

// DayCompletedEvent is published when an Arduino course day is marked complete
type DayCompletedEvent struct {
	BaseEvent
	Day string `json:"day"`
}

// NewDayCompletedEvent creates a new day completed event
func NewDayCompletedEvent(learnerID, day string, at time.Time) DayCompletedEvent {
	return DayCompletedEvent{
		BaseEvent: NewBaseEvent(EventDayCompleted, learnerID, at),
		Day:       day,
	}
}

// QuizScoredEvent is published when a quiz score is recorded
type QuizScoredEvent struct {
	BaseEvent
	QuizID    string `json:"quiz_id"`
	Score     int    `json:"score"`
	XPAwarded int    `json:"xp_awarded"`
}

// NewQuizScoredEvent creates a new quiz scored event
func NewQuizScoredEvent(learnerID, quizID string, score, xpAwarded int, at time.Time) QuizScoredEvent {
	return QuizScoredEvent{
		BaseEvent: NewBaseEvent(EventQuizScored, learnerID, at),
		QuizID:    quizID,
		Score:     score,
		XPAwarded: xpAwarded,
	}
}

// XPAwardedEvent is published after XP is added to a profile
type XPAwardedEvent struct {
	BaseEvent
	Amount int `json:"amount"`
	NewXP  int `json:"new_xp"`
}

// NewXPAwardedEvent creates a new XP awarded event
func NewXPAwardedEvent(learnerID string, amount, newXP int, at time.Time) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: NewBaseEvent(EventXPAwarded, learnerID, at),
		Amount:    amount,
		NewXP:     newXP,
	}
}

// LevelUpEvent is published when an XP award crosses a level boundary
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

// NewLevelUpEvent creates a new level up event
func NewLevelUpEvent(learnerID string, oldLevel, newLevel int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, learnerID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}
