package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/wholikeme/internal/db"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *MatchRepository) WithTx(tx *gorm.DB) *MatchRepository {
	return &MatchRepository{db: tx}
}

// CanonicalPair orders two user ids so the smaller one comes first.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// FindByPair returns the match for the unordered pair, or nil.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b string) (*db.Match, error) {
	u1, u2 := CanonicalPair(a, b)
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Limit(1).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// Record stores the match for the unordered pair {a, b}.
//
// Behavior:
//   - Ids are sorted so (a, b) and (b, a) address the same row.
//   - An existing row is returned unchanged (created = false); no duplicate is inserted.
//   - Insert uses ON CONFLICT DO NOTHING on the pair index, so a concurrent insert is absorbed.
//
// Example:
//
//	m, created, err := repo.Record(ctx, bobID, aliceID) // m.User1ID == min(aliceID, bobID)
func (r *MatchRepository) Record(ctx context.Context, a, b string) (*db.Match, bool, error) {
	u1, u2 := CanonicalPair(a, b)

	m := &db.Match{User1ID: u1, User2ID: u2}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return m, true, nil
	}

	existing, err := r.FindByPair(ctx, u1, u2)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, gorm.ErrRecordNotFound
	}
	return existing, false, nil
}

// ListForUser returns every match the user takes part in, newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("matched_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}
