package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/oggyb/wholikeme/internal/config"
)

// WebPushSender sends VAPID-signed, encrypted Web Push messages.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subject    string
	ttl        int
	client     *http.Client
}

// NewWebPushSender validates the VAPID configuration.
func NewWebPushSender(cfg *config.Config) (*WebPushSender, error) {
	if cfg.Push.VAPIDPublicKey == "" || cfg.Push.VAPIDPrivateKey == "" {
		return nil, errors.New("webpush: VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY are required")
	}
	return &WebPushSender{
		publicKey:  cfg.Push.VAPIDPublicKey,
		privateKey: cfg.Push.VAPIDPrivateKey,
		subject:    cfg.Push.VAPIDSubject,
		ttl:        cfg.Push.TTL,
		client:     &http.Client{Timeout: cfg.Push.Timeout},
	}, nil
}

func (s *WebPushSender) Name() string { return "webpush" }

// Send encrypts msg as JSON `{title, body}` for the browser subscription.
//
// Behavior:
//   - subscription must be the browser's PushSubscription JSON (endpoint + keys).
//   - 404/410 from the push service returns ErrSubscriptionGone.
//   - Any other non-2xx status is an error carrying the status code.
func (s *WebPushSender) Send(ctx context.Context, subscription string, msg Message) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(subscription), &sub); err != nil {
		return fmt.Errorf("webpush: invalid subscription: %w", err)
	}
	if sub.Endpoint == "" {
		return errors.New("webpush: subscription has no endpoint")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("webpush: marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("webpush: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 300:
		return fmt.Errorf("webpush: push service returned %d", resp.StatusCode)
	}
	return nil
}
