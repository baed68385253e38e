package user

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/oggyb/wholikeme/internal/app"
	"github.com/oggyb/wholikeme/internal/db"
	svcErr "github.com/oggyb/wholikeme/internal/errors"
	"github.com/oggyb/wholikeme/internal/repository"
)

// Service resolves identities and keeps user records in sync with the
// identity provider.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
}

// NewUserService creates a new User service with dependencies from AppContext.
func NewUserService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
	}
}

// Resolve maps an identifier to a user. Identifiers containing "@" are
// emails, anything else is a user id. Unknown users are NotFound.
//
// Example:
//
//	svc.Resolve(ctx, "bob@x.com")
//	svc.Resolve(ctx, "5f0c...") // by id
func (s *Service) Resolve(ctx context.Context, identifier string) (*db.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, svcErr.InvalidArgument("user identifier is required")
	}

	var (
		u   *db.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.userRepo.FindByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = s.userRepo.FindByID(ctx, identifier)
	}
	if repository.IsNotFound(err) {
		return nil, svcErr.NotFound("User not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return u, nil
}

// SyncInput is the identity-provider profile sent on sign-in.
type SyncInput struct {
	Email    string
	Name     string
	Image    string
	GoogleID string
}

// Sync creates or refreshes the user for a sign-in.
//
// Behavior:
//   - New email: inserts the user with the provider profile.
//   - Known email: always refreshes google_id. Name is only filled when empty
//     or still equal to the email. Image is only replaced when empty or still
//     the provider's avatar, and never cleared. Customized profile data is
//     never overwritten.
func (s *Service) Sync(ctx context.Context, in SyncInput) (*db.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, svcErr.InvalidArgument("Email is required")
	}

	var googleID *string
	if in.GoogleID != "" {
		googleID = &in.GoogleID
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if repository.IsNotFound(err) {
		u := &db.User{Email: email, Name: in.Name, Image: in.Image, GoogleID: googleID}
		if err := s.userRepo.Create(ctx, u); err != nil {
			s.appCtx.Logger.ErrorContext(ctx, "user insert failed", "email", email, "err", err)
			return nil, svcErr.Internal("Failed to sync user", err)
		}
		s.appCtx.Logger.InfoContext(ctx, "user created", "user", u.ID)
		return u, nil
	}
	if err != nil {
		return nil, svcErr.Internal("Failed to sync user", err)
	}

	fields := map[string]any{"google_id": googleID}
	if existing.Name == "" || existing.Name == existing.Email {
		fields["name"] = in.Name
	}
	if in.Image != "" && (existing.Image == "" || strings.Contains(existing.Image, "googleusercontent.com")) {
		fields["image"] = in.Image
	}
	if err := s.userRepo.UpdateFields(ctx, existing.ID, fields); err != nil {
		s.appCtx.Logger.ErrorContext(ctx, "user update failed", "user", existing.ID, "err", err)
		return nil, svcErr.Internal("Failed to sync user", err)
	}
	return s.userRepo.FindByID(ctx, existing.ID)
}

// Search finds other users by name for the add-crush picker.
func (s *Service) Search(ctx context.Context, query, currentUserID string) ([]db.User, error) {
	query = strings.TrimSpace(query)
	if query == "" || currentUserID == "" {
		return nil, svcErr.InvalidArgument("Query and currentUserId are required")
	}
	users, err := s.userRepo.Search(ctx, query, currentUserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return users, nil
}

// Profile limits.
const (
	MinAge       = 13
	MaxAge       = 100
	MaxBioLength = 500
	MaxInterests = 10
)

// ProfileInput is the editable part of a profile. Nil Age and empty
// strings clear the stored value, except Name and Image which are only
// written when set.
type ProfileInput struct {
	Name      string
	Age       *int
	Bio       string
	Interests []string
	Location  string
	Gender    string
	Image     string
}

func (in ProfileInput) validate() error {
	if in.Age != nil && (*in.Age < MinAge || *in.Age > MaxAge) {
		return svcErr.InvalidArgument("Age must be between 13 and 100")
	}
	if utf8.RuneCountInString(in.Bio) > MaxBioLength {
		return svcErr.InvalidArgument("Bio must not exceed 500 characters")
	}
	if len(in.Interests) > MaxInterests {
		return svcErr.InvalidArgument("Interests must be an array with maximum 10 items")
	}
	switch in.Gender {
	case "", "male", "female", "other":
	default:
		return svcErr.InvalidArgument("Gender must be male, female or other")
	}
	return nil
}

// UpdateProfile validates and stores the user's editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*db.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	values := &db.User{
		Name:      strings.TrimSpace(in.Name),
		Age:       in.Age,
		Bio:       in.Bio,
		Interests: in.Interests,
		Location:  strings.TrimSpace(in.Location),
		Gender:    in.Gender,
		Image:     in.Image,
	}
	columns := []string{"age", "bio", "interests", "location", "gender"}
	if values.Name != "" {
		columns = append(columns, "name")
	}
	if values.Image != "" {
		columns = append(columns, "image")
	}

	err := s.userRepo.UpdateColumns(ctx, userID, values, columns...)
	if repository.IsNotFound(err) {
		return nil, svcErr.NotFound("User not found")
	}
	if err != nil {
		s.appCtx.Logger.ErrorContext(ctx, "profile update failed", "user", userID, "err", err)
		return nil, svcErr.Internal("Failed to update profile", err)
	}
	return s.userRepo.FindByID(ctx, userID)
}

// SetOnline flips the presence flag. Going offline also stamps last_seen.
func (s *Service) SetOnline(ctx context.Context, userID string, online bool) error {
	if userID == "" {
		return svcErr.InvalidArgument("userId and is_online are required")
	}
	fields := map[string]any{"is_online": online}
	if !online {
		fields["last_seen"] = s.appCtx.DB.NowFunc()
	}
	return s.updatePresence(ctx, userID, fields, "Failed to update status")
}

// PingOnline is the client heartbeat: online now, last seen now.
func (s *Service) PingOnline(ctx context.Context, userID string) error {
	if userID == "" {
		return svcErr.InvalidArgument("userId is required")
	}
	fields := map[string]any{"is_online": true, "last_seen": s.appCtx.DB.NowFunc()}
	return s.updatePresence(ctx, userID, fields, "Failed to update last_seen")
}

func (s *Service) updatePresence(ctx context.Context, userID string, fields map[string]any, failure string) error {
	err := s.userRepo.UpdateFields(ctx, userID, fields)
	if repository.IsNotFound(err) {
		return svcErr.NotFound("User not found")
	}
	if err != nil {
		s.appCtx.Logger.WarnContext(ctx, "presence update failed", "user", userID, "err", err)
		return svcErr.Internal(failure, err)
	}
	return nil
}
