package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types.
const (
	// Learner events
	EventUserRegistered EventType = "learner.registered"
	EventUserDeleted    EventType = "learner.deleted"

	// Progress events
	EventXPGained                EventType = "progress.xp_gained"
	EventLevelUp                 EventType = "progress.level_up"
	EventSkillUnlocked           EventType = "progress.skill_unlocked"
	EventQuizCompleted           EventType = "progress.quiz_completed"
	EventDailyChallengeCompleted EventType = "progress.daily_challenge_completed"
	EventAchievementUnlocked     EventType = "progress.achievement_unlocked"
)

// XP sources carried by XPGainedEvent.
const (
	XPSourceQuiz           = "quiz"
	XPSourceSkillUnlock    = "skill_unlock"
	XPSourceDailyChallenge = "daily_challenge"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Learner Events
// ═══════════════════════════════════════════════════════════════════════════

// UserRegisteredEvent is emitted when a new user registers.
type UserRegisteredEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Payload implements Event interface.
func (e UserRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"username": e.Username,
		"email":    e.Email,
	}
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent.
func NewUserRegisteredEvent(userID, username, email string) UserRegisteredEvent {
	return UserRegisteredEvent{
		BaseEvent: NewBaseEvent(EventUserRegistered, userID),
		UserID:    userID,
		Username:  username,
		Email:     email,
	}
}

// UserDeletedEvent is emitted after an account is deleted.
type UserDeletedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Payload implements Event interface.
func (e UserDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"email":   e.Email,
	}
}

// NewUserDeletedEvent creates a new UserDeletedEvent.
func NewUserDeletedEvent(userID, email string) UserDeletedEvent {
	return UserDeletedEvent{
		BaseEvent: NewBaseEvent(EventUserDeleted, userID),
		UserID:    userID,
		Email:     email,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a user gains XP.
type XPGainedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // quiz, skill_unlock, daily_challenge
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount, newTotal int, source string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted once per level gained.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// SkillUnlockedEvent is emitted when a user unlocks a skill.
type SkillUnlockedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	SkillID   string `json:"skill_id"`
	SkillName string `json:"skill_name"`
	BonusXP   int    `json:"bonus_xp"`
}

// Payload implements Event interface.
func (e SkillUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"skill_id":   e.SkillID,
		"skill_name": e.SkillName,
		"bonus_xp":   e.BonusXP,
	}
}

// NewSkillUnlockedEvent creates a new SkillUnlockedEvent.
func NewSkillUnlockedEvent(userID, skillID, skillName string, bonusXP int) SkillUnlockedEvent {
	return SkillUnlockedEvent{
		BaseEvent: NewBaseEvent(EventSkillUnlocked, userID),
		UserID:    userID,
		SkillID:   skillID,
		SkillName: skillName,
		BonusXP:   bonusXP,
	}
}

// QuizCompletedEvent is emitted after a quiz has been graded.
type QuizCompletedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	QuizID   string `json:"quiz_id"`
	Skill    string `json:"skill"`
	Score    int    `json:"score"`
	Total    int    `json:"total"`
	EarnedXP int    `json:"earned_xp"`
}

// Payload implements Event interface.
func (e QuizCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"quiz_id":   e.QuizID,
		"skill":     e.Skill,
		"score":     e.Score,
		"total":     e.Total,
		"earned_xp": e.EarnedXP,
	}
}

// NewQuizCompletedEvent creates a new QuizCompletedEvent.
func NewQuizCompletedEvent(userID, quizID, skill string, score, total, earnedXP int) QuizCompletedEvent {
	return QuizCompletedEvent{
		BaseEvent: NewBaseEvent(EventQuizCompleted, userID),
		UserID:    userID,
		QuizID:    quizID,
		Skill:     skill,
		Score:     score,
		Total:     total,
		EarnedXP:  earnedXP,
	}
}

// DailyChallengeCompletedEvent is emitted when the daily quota is reached.
type DailyChallengeCompletedEvent struct {
	BaseEvent
	UserID   string    `json:"user_id"`
	Day      time.Time `json:"day"`
	RewardXP int       `json:"reward_xp"`
}

// Payload implements Event interface.
func (e DailyChallengeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"day":       e.Day.Format("2006-01-02"),
		"reward_xp": e.RewardXP,
	}
}

// NewDailyChallengeCompletedEvent creates a new DailyChallengeCompletedEvent.
func NewDailyChallengeCompletedEvent(userID string, day time.Time, rewardXP int) DailyChallengeCompletedEvent {
	return DailyChallengeCompletedEvent{
		BaseEvent: NewBaseEvent(EventDailyChallengeCompleted, userID),
		UserID:    userID,
		Day:       day,
		RewardXP:  rewardXP,
	}
}

// AchievementUnlockedEvent is emitted when a user earns an achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"name":        e.Name,
		"title":       e.Title,
		"description": e.Description,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, name, title, description string) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:   NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:      userID,
		Name:        name,
		Title:       title,
		Description: description,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
