package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender sends push notifications via Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender creates the Firebase messaging client. With an empty
// credentials path the default application credentials are used.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("fcm: init app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("fcm: messaging client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Name() string { return "fcm" }

// Send delivers msg to the registration token stored in subscription.
// An unregistered token returns ErrSubscriptionGone.
func (s *FCMSender) Send(ctx context.Context, subscription string, msg Message) error {
	token := TokenOf(subscription)
	if token == "" {
		return errors.New("fcm: empty registration token")
	}

	_, err := s.client.Send(ctx, &messaging.Message{
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:  msg.Data,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: msg.Title,
				Body:  msg.Body,
			},
		},
	})
	if messaging.IsUnregistered(err) {
		return ErrSubscriptionGone
	}
	if err != nil {
		return fmt.Errorf("fcm: send: %w", err)
	}
	return nil
}

// TokenOf accepts either a bare registration token or `{"token": "..."}`.
func TokenOf(subscription string) string {
	s := strings.TrimSpace(subscription)
	if strings.HasPrefix(s, "{") {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal([]byte(s), &body); err == nil {
			return body.Token
		}
		return ""
	}
	return s
}
