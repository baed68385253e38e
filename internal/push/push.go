// Package push delivers notification payloads to browsers and devices.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oggyb/wholikeme/internal/config"
)

// ErrSubscriptionGone means the push service no longer knows the subscription
// and the caller should delete it.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Message is the visible part of a push notification.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sender delivers one message to one stored subscription.
// subscription is the opaque value saved for the endpoint.
type Sender interface {
	Send(ctx context.Context, subscription string, msg Message) error
	Name() string
}

// NoopSender drops every message. Used when push is disabled.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, Message) error { return nil }

func (NoopSender) Name() string { return "none" }

// NewSender builds the transport selected by cfg.Push.Provider.
func NewSender(ctx context.Context, cfg *config.Config) (Sender, error) {
	switch cfg.Push.Provider {
	case "webpush", "":
		return NewWebPushSender(cfg)
	case "fcm", "firebase":
		return NewFCMSender(ctx, cfg.Push.FCMCredentials)
	case "none", "off", "disabled":
		return NoopSender{}, nil
	default:
		return nil, fmt.Errorf("unknown push provider %q", cfg.Push.Provider)
	}
}

// EndpointOf returns the unique endpoint key of a subscription payload:
// the Web Push endpoint URL, or "fcm:<token>" for an FCM registration.
func EndpointOf(subscription []byte) (string, error) {
	var body struct {
		Endpoint string `json:"endpoint"`
		Token    string `json:"token"`
	}
	if err := json.Unmarshal(subscription, &body); err != nil {
		return "", fmt.Errorf("invalid subscription: %w", err)
	}
	switch {
	case body.Endpoint != "":
		return body.Endpoint, nil
	case body.Token != "":
		return "fcm:" + body.Token, nil
	}
	return "", errors.New("subscription has no endpoint")
}
