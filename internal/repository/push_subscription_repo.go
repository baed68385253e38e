package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/wholikeme/internal/db"
)

// PushSubscriptionRepository stores browser/device push endpoints.
type PushSubscriptionRepository struct {
	db *gorm.DB
}

func NewPushSubscriptionRepository(database *gorm.DB) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{db: database}
}

// Save registers endpoint for the user.
//
// Behavior:
//   - Any existing row for the endpoint is deleted first, whoever owned it.
//   - Delete and insert share one transaction.
//
// Example:
//
//	repo.Save(ctx, bobID, "https://fcm.googleapis.com/fcm/send/abc", `{"endpoint":...}`)
func (r *PushSubscriptionRepository) Save(ctx context.Context, userID, endpoint, payload string) (*db.PushSubscription, error) {
	sub := &db.PushSubscription{
		UserID:       userID,
		Endpoint:     endpoint,
		Subscription: payload,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&db.PushSubscription{}).Error; err != nil {
			return err
		}
		return tx.Create(sub).Error
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// LatestForUser returns the most recently saved subscription, or nil.
func (r *PushSubscriptionRepository) LatestForUser(ctx context.Context, userID string) (*db.PushSubscription, error) {
	var subs []db.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return &subs[0], nil
}

// DeleteByEndpoint removes a subscription the push service reported as gone.
func (r *PushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return r.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&db.PushSubscription{}).Error
}
