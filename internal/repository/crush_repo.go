package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/wholikeme/internal/db"
)

// CrushRepository provides data access methods for the Crush model.
// It encapsulates all queries on directed "actor likes target" edges.
type CrushRepository struct {
	db *gorm.DB
}

// NewCrushRepository creates a new repository bound to the given DB connection.
func NewCrushRepository(database *gorm.DB) *CrushRepository {
	return &CrushRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *CrushRepository) WithTx(tx *gorm.DB) *CrushRepository {
	return &CrushRepository{db: tx}
}

// FindEdge returns the edge actor → target, or nil when there is none.
//
// Behavior:
//   - Lookup is by (actor_user_id, target_user_id), served by the unique index.
//   - A missing edge is not an error.
//
// Example:
//
//	edge, err := repo.FindEdge(ctx, aliceID, bobID) // nil if Alice never added Bob
func (r *CrushRepository) FindEdge(ctx context.Context, actorID, targetID string) (*db.Crush, error) {
	var edges []db.Crush
	err := r.db.WithContext(ctx).
		Where("actor_user_id = ? AND target_user_id = ?", actorID, targetID).
		Limit(1).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}
	return &edges[0], nil
}

// FindReciprocal returns the edge target → actor, or nil.
// Used right after actor → target is written to detect a mutual crush.
func (r *CrushRepository) FindReciprocal(ctx context.Context, actorID, targetID string) (*db.Crush, error) {
	return r.FindEdge(ctx, targetID, actorID)
}

// CreateEdge inserts a pending edge actor → target.
// A second edge for the same pair fails with gorm.ErrDuplicatedKey
// when the connection translates errors.
func (r *CrushRepository) CreateEdge(ctx context.Context, actorID string, target *db.User) (*db.Crush, error) {
	edge := &db.Crush{
		ActorUserID:  actorID,
		TargetUserID: target.ID,
		TargetEmail:  target.Email,
		Status:       db.CrushPending,
	}
	if err := r.db.WithContext(ctx).Create(edge).Error; err != nil {
		return nil, err
	}
	return edge, nil
}

// UpdateStatus sets the status of the given edges.
func (r *CrushRepository) UpdateStatus(ctx context.Context, status string, edgeIDs ...string) error {
	if len(edgeIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Crush{}).
		Where("id IN ?", edgeIDs).
		Update("status", status).Error
}

// ListByActor returns the crushes the user added, newest first.
func (r *CrushRepository) ListByActor(ctx context.Context, actorID string) ([]db.Crush, error) {
	var edges []db.Crush
	err := r.db.WithContext(ctx).
		Where("actor_user_id = ?", actorID).
		Order("created_at DESC, id DESC").
		Find(&edges).Error
	return edges, err
}

// ListByTarget returns the crushes that target the user (their admirers), newest first.
func (r *CrushRepository) ListByTarget(ctx context.Context, targetID string) ([]db.Crush, error) {
	var edges []db.Crush
	err := r.db.WithContext(ctx).
		Where("target_user_id = ?", targetID).
		Order("created_at DESC, id DESC").
		Find(&edges).Error
	return edges, err
}
