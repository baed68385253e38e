package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/wholikeme/internal/db"
	"github.com/oggyb/wholikeme/internal/utils/pagination"
)

// NotificationRepository provides data access methods for the Notification model.
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new repository bound to the given DB connection.
func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

// FindByID returns gorm.ErrRecordNotFound for an unknown id.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*db.Notification, error) {
	var n db.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) Create(ctx context.Context, n *db.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// List returns the user's notifications, newest first.
//
// Behavior:
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination via paginationToken.
//   - limit is clamped to pagination.MaxLimit.
//
// Example:
//
//	repo.List(ctx, bobID, nil, 20) // first 20 notifications of Bob
func (r *NotificationRepository) List(
	ctx context.Context,
	userID string,
	paginationToken *string,
	limit int,
) ([]db.Notification, *string, error) {
	limit = pagination.ClampLimit(limit)

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := time.Unix(0, cursor.CreatedUnix).UTC()
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var notifications []db.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(notifications) > limit {
		last := notifications[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:          last.ID,
			CreatedUnix: last.CreatedAt.UnixNano(),
		})
		nextToken = &token
		notifications = notifications[:limit]
	}

	return notifications, nextToken, nil
}

// Count returns how many notifications the user has in total.
func (r *NotificationRepository) Count(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Notification{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

// CountUnread returns how many unread notifications the user has.
// Used in conjunction with Redis cache (DB is fallback).
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkRead flags one notification as read and returns it.
// Returns gorm.ErrRecordNotFound for an unknown id.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (*db.Notification, error) {
	n, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	if err := r.db.WithContext(ctx).Model(n).Update("is_read", true).Error; err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

// MarkAllRead flags every unread notification of the user and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
