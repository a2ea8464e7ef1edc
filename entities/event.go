package entities

import "time"

const EventUserCreated = "user_created"

// UserEvent is the envelope pushed to subscribers and published on the broker.
type UserEvent struct {
	Type       string    `json:"type"`
	User       User      `json:"user"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewUserCreatedEvent(user User) UserEvent {
	return UserEvent{
		Type:       EventUserCreated,
		User:       user,
		OccurredAt: time.Now().UTC(),
	}
}
