package services

import (
	"context"

	"users-service/entities"

	"github.com/sirupsen/logrus"
)

// Sink receives user events.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event entities.UserEvent) error
}

// UserNotifier fans user events out to every configured sink. A failing sink
// is logged and skipped.
type UserNotifier struct {
	sinks []Sink
}

func NewUserNotifier(sinks ...Sink) *UserNotifier {
	n := &UserNotifier{}
	for _, s := range sinks {
		if s != nil {
			n.sinks = append(n.sinks, s)
		}
	}
	return n
}

// UserCreated notifies every sink about a new user and returns how many
// accepted the event.
func (n *UserNotifier) UserCreated(ctx context.Context, user entities.User) int {
	if n == nil {
		return 0
	}
	event := entities.NewUserCreatedEvent(user)
	accepted := 0
	for _, s := range n.sinks {
		if err := s.Publish(ctx, event); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"sink":    s.Name(),
				"user_id": user.ID,
			}).Error("failed to publish user event")
			continue
		}
		accepted++
	}
	return accepted
}

func (n *UserNotifier) Sinks() []string {
	if n == nil {
		return nil
	}
	names := make([]string, 0, len(n.sinks))
	for _, s := range n.sinks {
		names = append(names, s.Name())
	}
	return names
}
