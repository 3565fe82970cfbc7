package notification

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

import (
	"context"
	"errors"

	"voltfox-backend/internal/model"
)

// ErrSubscriptionGone is returned by a PushSender when the push service
// reports that the endpoint no longer exists.
var ErrSubscriptionGone = errors.New("push subscription is no longer valid")

// Repository is the storage the dispatcher needs. store.Store satisfies it.
type Repository interface {
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetPreferences(ctx context.Context, userID string) (model.NotificationPreferences, error)
	ListPushSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeletePushSubscriptions(ctx context.Context, userID string, endpoints ...string) (int64, error)
	RecordNotification(ctx context.Context, entry *model.NotificationLog) error
}

// PushSender delivers one payload to one browser push endpoint.
type PushSender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload []byte) error
}

// EmailSender delivers one plain-text email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
