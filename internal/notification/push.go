package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"voltfox-backend/internal/model"
)

type sendFunc func(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// WebPushSender is a PushSender backed by the webpush library.
type WebPushSender struct {
	options *webpush.Options
	send    sendFunc
}

// NewWebPushSender creates a sender signing requests with the given VAPID options.
func NewWebPushSender(options *webpush.Options) *WebPushSender {
	return &WebPushSender{options: options, send: webpush.SendNotificationWithContext}
}

// Send delivers payload to sub. A 404 or 410 answer yields ErrSubscriptionGone.
func (s *WebPushSender) Send(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := s.send(ctx, payload, wpSub, s.options)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrSubscriptionGone
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("push service answered %d", resp.StatusCode)
	}
	return nil
}
