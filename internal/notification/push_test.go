package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"

	"voltfox-backend/internal/model"
)

func TestWebPushSender_Send(t *testing.T) {
	sub := model.PushSubscription{
		Endpoint: "https://example.com/push",
		P256DH:   "test_p256dh",
		Auth:     "test_auth",
	}

	testCases := []struct {
		name    string
		status  int
		sendErr error
		check   func(t *testing.T, err error)
	}{
		{"created", http.StatusCreated, nil, func(t *testing.T, err error) { assert.NoError(t, err) }},
		{"gone", http.StatusGone, nil, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrSubscriptionGone) }},
		{"not found", http.StatusNotFound, nil, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrSubscriptionGone) }},
		{"rate limited", http.StatusTooManyRequests, nil, func(t *testing.T, err error) {
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrSubscriptionGone)
		}},
		{"transport error", 0, errors.New("dial tcp: timeout"), func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "dial tcp")
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := &webpush.Options{TTL: 60}
			s := NewWebPushSender(opts)
			s.send = func(ctx context.Context, payload []byte, wpSub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", wpSub.Endpoint)
				assert.Equal(t, "test_p256dh", wpSub.Keys.P256dh)
				assert.Equal(t, "test_auth", wpSub.Keys.Auth)
				assert.Same(t, opts, options)
				assert.Equal(t, `{"title":"hi"}`, string(payload))
				if tc.sendErr != nil {
					return nil, tc.sendErr
				}
				return &http.Response{
					StatusCode: tc.status,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			}

			tc.check(t, s.Send(context.Background(), sub, []byte(`{"title":"hi"}`)))
		})
	}
}
