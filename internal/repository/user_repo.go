package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/wholikeme/internal/db"
)

// SearchLimit caps the number of rows returned by Search.
const SearchLimit = 20

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// FindByID returns gorm.ErrRecordNotFound when no user has the id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail returns gorm.ErrRecordNotFound when no user has the email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByIDs loads several users at once, keyed by id. Unknown ids are skipped.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]db.User, error) {
	out := make(map[string]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// UpdateFields applies a partial update. Empty maps are a no-op.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// UpdateColumns writes the named columns from values, zero values included.
// Struct updates go through field serializers (interests), map updates do not.
func (r *UserRepository) UpdateColumns(ctx context.Context, id string, values *db.User, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	cols := make([]any, 0, len(columns)-1)
	for _, c := range columns[1:] {
		cols = append(cols, c)
	}
	res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Select(columns[0], cols...).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search finds users whose name contains query, case-insensitively.
//
// Behavior:
//   - Wildcards in query are matched literally.
//   - excludeID (the caller) is never returned.
//   - At most SearchLimit rows, ordered by name.
//
// Example:
//
//	repo.Search(ctx, "ali", me.ID) // -> [Alice, Alicia]
func (r *UserRepository) Search(ctx context.Context, query, excludeID string) ([]db.User, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	q := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? ESCAPE '!'", pattern).
		Order("name ASC").
		Limit(SearchLimit)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var users []db.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
