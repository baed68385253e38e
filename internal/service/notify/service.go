package notify

import (
	"context"
	"errors"

	"github.com/oggyb/wholikeme/internal/app"
	"github.com/oggyb/wholikeme/internal/db"
	svcErr "github.com/oggyb/wholikeme/internal/errors"
	"github.com/oggyb/wholikeme/internal/push"
	"github.com/oggyb/wholikeme/internal/repository"
	"github.com/oggyb/wholikeme/internal/utils/pagination"
)

// Service persists notifications, keeps the unread counter and delivers pushes.
// Push delivery is always best-effort: a failed push never fails the caller.
type Service struct {
	appCtx           *app.AppContext
	notificationRepo *repository.NotificationRepository
	subscriptionRepo *repository.PushSubscriptionRepository
	catalog          *Catalog
}

// NewNotifyService creates a new Notify service with dependencies from AppContext.
func NewNotifyService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:           appCtx,
		notificationRepo: repository.NewNotificationRepository(appCtx.DB),
		subscriptionRepo: repository.NewPushSubscriptionRepository(appCtx.DB),
		catalog:          DefaultCatalog(),
	}
}

// Catalog exposes the message catalog used for notification texts.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Language is the default language for push payloads and responses.
func (s *Service) Language() string { return s.appCtx.Config.Notify.Language }

// Notify stores a notification for recipientID and attempts a push.
//
// Behavior:
//  1. Persists the row. A failure here is returned; nothing else happens.
//  2. Bumps the cached unread counter when it is cached.
//  3. Pushes {title, body} in the default language to the newest subscription.
//
// The returned bool reports whether the push was delivered.
//
// Example:
//
//	title, msg := svc.Catalog().Render(notify.KeyNewCrush, "Alice")
//	n, pushed, err := svc.Notify(ctx, bobID, db.NotificationNewCrush, title, msg, aliceID)
func (s *Service) Notify(
	ctx context.Context,
	recipientID, notificationType string,
	title, message Text,
	fromUserID string,
) (*db.Notification, bool, error) {
	n := &db.Notification{
		UserID:    recipientID,
		Type:      notificationType,
		TitleEN:   title.EN,
		TitleFR:   title.FR,
		MessageEN: message.EN,
		MessageFR: message.FR,
	}
	if fromUserID != "" {
		n.FromUserID = &fromUserID
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, false, err
	}

	if s.appCtx.RedisCache != nil {
		if err := s.appCtx.RedisCache.IncrUnreadCount(ctx, recipientID); err != nil {
			s.appCtx.Logger.WarnContext(ctx, "unread counter update failed", "user", recipientID, "err", err)
		}
	}

	lang := s.Language()
	pushed := s.SendPush(ctx, recipientID, push.Message{
		Title: n.Title(lang),
		Body:  n.Message(lang),
		Data: map[string]string{
			"type":           notificationType,
			"notificationId": n.ID,
		},
	})

	s.appCtx.Logger.DebugContext(ctx, "notification stored", "recipient", recipientID, "type", notificationType, "pushed", pushed)
	return n, pushed, nil
}

// SendPush delivers msg to the user's newest subscription.
// Returns false when there is no subscription or the transport fails
// (a panicking transport included). A subscription the push service reports
// as gone is deleted.
func (s *Service) SendPush(ctx context.Context, userID string, msg push.Message) (pushed bool) {
	defer func() {
		if r := recover(); r != nil {
			s.appCtx.Logger.ErrorContext(ctx, "push transport panicked", "user", userID, "transport", s.appCtx.Push.Name(), "panic", r)
			pushed = false
		}
	}()

	sub, err := s.subscriptionRepo.LatestForUser(ctx, userID)
	if err != nil {
		s.appCtx.Logger.WarnContext(ctx, "push subscription lookup failed", "user", userID, "err", err)
		return false
	}
	if sub == nil {
		return false
	}

	err = s.appCtx.Push.Send(ctx, sub.Subscription, msg)
	switch {
	case errors.Is(err, push.ErrSubscriptionGone):
		s.appCtx.Logger.InfoContext(ctx, "push subscription gone, removing", "user", userID, "endpoint", sub.Endpoint)
		if derr := s.subscriptionRepo.DeleteByEndpoint(ctx, sub.Endpoint); derr != nil {
			s.appCtx.Logger.WarnContext(ctx, "failed to remove push subscription", "endpoint", sub.Endpoint, "err", derr)
		}
		return false
	case err != nil:
		s.appCtx.Logger.WarnContext(ctx, "push failed", "user", userID, "transport", s.appCtx.Push.Name(), "err", err)
		return false
	}
	return true
}

// ListResult is one page of a user's inbox.
type ListResult struct {
	Notifications []db.Notification
	NextToken     *string
	UnreadCount   int64
	Count         int64
}

// List returns a page of notifications plus the unread and total counts.
func (s *Service) List(ctx context.Context, userID string, paginationToken *string, limit int) (*ListResult, error) {
	if userID == "" {
		return nil, svcErr.InvalidArgument("userId is required")
	}

	items, next, err := s.notificationRepo.List(ctx, userID, paginationToken, limit)
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, svcErr.InvalidArgument("invalid pagination token")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.notificationRepo.Count(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	return &ListResult{
		Notifications: items,
		NextToken:     next,
		UnreadCount:   unread,
		Count:         total,
	}, nil
}

// UnreadCount returns how many unread notifications the user has.
// Cache-first strategy:
//  1. Attempts to read from Redis (notifications:unread:userID).
//  2. On a miss or Redis error, falls back to DB via repository.CountUnread.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, svcErr.InvalidArgument("userId is required")
	}

	if s.appCtx.RedisCache != nil {
		if n, ok, err := s.appCtx.RedisCache.GetUnreadCount(ctx, userID); err == nil && ok {
			return n, nil
		}
	}

	count, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}

	if s.appCtx.RedisCache != nil {
		_ = s.appCtx.RedisCache.SetUnreadCount(ctx, userID, count)
	}
	return count, nil
}

// MarkRead flags one notification as read.
// A non-empty ownerID must match the notification's recipient.
func (s *Service) MarkRead(ctx context.Context, notificationID, ownerID string) error {
	if notificationID == "" {
		return svcErr.InvalidArgument("notificationId or userId is required")
	}
	if ownerID != "" {
		n, err := s.notificationRepo.FindByID(ctx, notificationID)
		if repository.IsNotFound(err) {
			return svcErr.NotFound("Notification not found")
		}
		if err != nil {
			return svcErr.Map(err)
		}
		if n.UserID != ownerID {
			return svcErr.Forbidden("cannot act on behalf of another user")
		}
	}

	n, err := s.notificationRepo.MarkRead(ctx, notificationID)
	if repository.IsNotFound(err) {
		return svcErr.NotFound("Notification not found")
	}
	if err != nil {
		return svcErr.Map(err)
	}
	s.resetUnread(ctx, n.UserID)
	return nil
}

// MarkAllRead flags every notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, svcErr.InvalidArgument("notificationId or userId is required")
	}
	changed, err := s.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	s.resetUnread(ctx, userID)
	return changed, nil
}

func (s *Service) resetUnread(ctx context.Context, userID string) {
	if s.appCtx.RedisCache == nil {
		return
	}
	if err := s.appCtx.RedisCache.ResetUnreadCount(ctx, userID); err != nil {
		s.appCtx.Logger.WarnContext(ctx, "unread counter reset failed", "user", userID, "err", err)
	}
}

// SaveSubscription stores the raw subscription payload for the user.
// The endpoint key comes from the payload (Web Push endpoint or FCM token).
func (s *Service) SaveSubscription(ctx context.Context, userID string, subscription []byte) (*db.PushSubscription, error) {
	if userID == "" || len(subscription) == 0 {
		return nil, svcErr.InvalidArgument("Missing userId or subscription.endpoint")
	}
	endpoint, err := push.EndpointOf(subscription)
	if err != nil {
		return nil, svcErr.InvalidArgument("Missing userId or subscription.endpoint")
	}

	sub, err := s.subscriptionRepo.Save(ctx, userID, endpoint, string(subscription))
	if err != nil {
		return nil, svcErr.Map(err)
	}
	s.appCtx.Logger.DebugContext(ctx, "push subscription saved", "user", userID, "endpoint", endpoint)
	return sub, nil
}
