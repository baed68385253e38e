package crush

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/oggyb/wholikeme/internal/app"
	"github.com/oggyb/wholikeme/internal/cache"
	"github.com/oggyb/wholikeme/internal/db"
	svcErr "github.com/oggyb/wholikeme/internal/errors"
	"github.com/oggyb/wholikeme/internal/repository"
	"github.com/oggyb/wholikeme/internal/service/notify"
	"github.com/oggyb/wholikeme/internal/service/user"
)

const tracerName = "github.com/oggyb/wholikeme/internal/service/crush"

// Service runs the add-crush workflow and the relationship listings.
// It sits on top of the user resolver, the crush and match repositories
// and the notifier.
type Service struct {
	appCtx    *app.AppContext
	users     *user.Service
	notifier  *notify.Service
	userRepo  *repository.UserRepository
	crushRepo *repository.CrushRepository
	matchRepo *repository.MatchRepository
	tracer    trace.Tracer
}

// NewCrushService creates a new Crush service with dependencies from AppContext.
func NewCrushService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		users:     user.NewUserService(appCtx),
		notifier:  notify.NewNotifyService(appCtx),
		userRepo:  repository.NewUserRepository(appCtx.DB),
		crushRepo: repository.NewCrushRepository(appCtx.DB),
		matchRepo: repository.NewMatchRepository(appCtx.DB),
		tracer:    otel.Tracer(tracerName),
	}
}

// AddResult is the outcome of a successful AddCrush.
type AddResult struct {
	Edge    *db.Crush
	Match   *db.Match
	Matched bool
	Message string
}

// AddCrush records that actorID has a crush on target and detects a match.
//
// Behavior:
//  1. Missing ids or actor == target are InvalidRequest, before any lookup.
//  2. target (an id or an email) must resolve, else NotFound.
//  3. An existing edge actor → target is a Conflict.
//  4. The actor must exist, else NotFound.
//  5. Under the pair lock, one transaction creates the edge, checks the
//     reciprocal edge and, when present, records the match and flips both
//     edges to matched. Any failure rolls back all of it.
//  6. After commit the target gets new_crush and, on a match, both users get
//     new_match. Notification failures are logged and never change the result.
//
// Example:
//
//	res, err := svc.AddCrush(ctx, aliceID, bobID)
//	if err == nil && res.Matched { ... }
func (s *Service) AddCrush(ctx context.Context, actorID, target string) (*AddResult, error) {
	ctx, span := s.tracer.Start(ctx, "crush.AddCrush", trace.WithAttributes(
		attribute.String("crush.actor_id", actorID),
	))
	defer span.End()

	res, err := s.addCrush(ctx, span, actorID, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("crush.matched", res.Matched))
	return res, nil
}

func (s *Service) addCrush(ctx context.Context, span trace.Span, actorID, target string) (*AddResult, error) {
	if actorID == "" || target == "" {
		return nil, svcErr.InvalidArgument("userId and crushUserId are required")
	}
	if actorID == target {
		return nil, svcErr.InvalidArgument("You cannot add yourself as a crush")
	}

	targetUser, err := s.users.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	// target given as the actor's own email
	if targetUser.ID == actorID {
		return nil, svcErr.InvalidArgument("You cannot add yourself as a crush")
	}
	span.SetAttributes(attribute.String("crush.target_id", targetUser.ID))

	existing, err := s.crushRepo.FindEdge(ctx, actorID, targetUser.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if existing != nil {
		return nil, errAlreadyAdded
	}

	actor, err := s.users.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	release := s.lockPair(ctx, actor.ID, targetUser.ID)
	edge, match, err := s.createEdge(ctx, actor.ID, targetUser)
	release()
	if err != nil {
		return nil, err
	}

	s.appCtx.Logger.InfoContext(ctx, "crush added", "actor", actor.ID, "target", targetUser.ID, "matched", match != nil)

	s.notify(ctx, targetUser.ID, db.NotificationNewCrush, notify.KeyNewCrush, actor.DisplayName(), actor.ID)

	catalog := s.notifier.Catalog()
	lang := s.notifier.Language()
	if match == nil {
		_, msg := catalog.Render(notify.KeyCrushAdded, "")
		return &AddResult{Edge: edge, Message: msg.In(lang)}, nil
	}

	s.notify(ctx, actor.ID, db.NotificationNewMatch, notify.KeyNewMatch, targetUser.DisplayName(), targetUser.ID)
	s.notify(ctx, targetUser.ID, db.NotificationNewMatch, notify.KeyNewMatch, actor.DisplayName(), actor.ID)

	_, msg := catalog.Render(notify.KeyMatchFound, "")
	return &AddResult{Edge: edge, Match: match, Matched: true, Message: msg.In(lang)}, nil
}

var errAlreadyAdded = svcErr.AlreadyExists("You already added this person to your crushes")

// lockPair serializes add-crush for one unordered pair of users.
// Without Redis, or when the lock stays busy, the caller proceeds unlocked.
func (s *Service) lockPair(ctx context.Context, a, b string) func() {
	noop := func() {}
	if s.appCtx.RedisCache == nil {
		return noop
	}

	cfg := s.appCtx.Config.Crush
	key := s.appCtx.RedisCache.KeyForPairLock(a, b)
	release, err := s.appCtx.RedisCache.AcquireLock(ctx, key, cfg.PairLockTTL, cfg.PairLockWait)
	switch {
	case errors.Is(err, cache.ErrLockNotAcquired):
		s.appCtx.Logger.WarnContext(ctx, "pair lock busy, proceeding unlocked", "key", key)
		return noop
	case err != nil:
		s.appCtx.Logger.WarnContext(ctx, "pair lock unavailable, proceeding unlocked", "key", key, "err", err)
		return noop
	}
	return release
}

// createEdge writes actor → target and, when target → actor exists, the
// match and both status flips, all in one transaction.
func (s *Service) createEdge(ctx context.Context, actorID string, target *db.User) (*db.Crush, *db.Match, error) {
	ctx, span := s.tracer.Start(ctx, "crush.createEdge")
	defer span.End()

	var (
		edge  *db.Crush
		match *db.Match
	)
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		crushes := s.crushRepo.WithTx(tx)
		matches := s.matchRepo.WithTx(tx)

		// recheck under the lock
		dup, err := crushes.FindEdge(ctx, actorID, target.ID)
		if err != nil {
			return err
		}
		if dup != nil {
			return errAlreadyAdded
		}

		edge, err = crushes.CreateEdge(ctx, actorID, target)
		if err != nil {
			return err
		}

		reciprocal, err := crushes.FindReciprocal(ctx, actorID, target.ID)
		if err != nil {
			return err
		}
		if reciprocal == nil {
			return nil
		}

		match, _, err = matches.Record(ctx, actorID, target.ID)
		if err != nil {
			return err
		}
		if err := crushes.UpdateStatus(ctx, db.CrushMatched, edge.ID, reciprocal.ID); err != nil {
			return err
		}
		edge.Status = db.CrushMatched
		return nil
	})

	switch {
	case err == nil:
		return edge, match, nil
	case errors.Is(err, errAlreadyAdded), errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, nil, errAlreadyAdded
	default:
		span.RecordError(err)
		s.appCtx.Logger.ErrorContext(ctx, "add crush transaction failed", "actor", actorID, "target", target.ID, "err", err)
		return nil, nil, svcErr.Internal("Failed to add crush", err)
	}
}

// notify stores and pushes one notification. Failures are logged only.
func (s *Service) notify(ctx context.Context, recipientID, notificationType, key, name, fromUserID string) {
	title, msg := s.notifier.Catalog().Render(key, name)
	if _, _, err := s.notifier.Notify(ctx, recipientID, notificationType, title, msg, fromUserID); err != nil {
		s.appCtx.Logger.ErrorContext(ctx, "notification failed", "recipient", recipientID, "type", notificationType, "err", err)
	}
}

// CrushView is one relationship edge joined with the other user's profile.
// User is nil when that user no longer exists.
type CrushView struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	User      *user.Profile `json:"user"`
}

// MatchView is a match joined with the other participant's profile.
type MatchView struct {
	ID        string        `json:"id"`
	MatchedAt time.Time     `json:"matched_at"`
	User      *user.Profile `json:"user"`
}

// ListCrushes returns the users userID added, newest first.
func (s *Service) ListCrushes(ctx context.Context, userID string) ([]CrushView, error) {
	if userID == "" {
		return nil, svcErr.InvalidArgument("userId is required")
	}
	edges, err := s.crushRepo.ListByActor(ctx, userID)
	if err != nil {
		return nil, svcErr.Internal("Failed to fetch crushes", err)
	}
	return s.joinEdges(ctx, edges, func(c db.Crush) string { return c.TargetUserID })
}

// ListAdmirers returns the users who added userID, newest first.
// An unknown userID is NotFound.
func (s *Service) ListAdmirers(ctx context.Context, userID string) ([]CrushView, error) {
	if userID == "" {
		return nil, svcErr.InvalidArgument("userId is required")
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if repository.IsNotFound(err) {
			return nil, svcErr.NotFound("User not found")
		}
		return nil, svcErr.Map(err)
	}
	edges, err := s.crushRepo.ListByTarget(ctx, userID)
	if err != nil {
		return nil, svcErr.Internal("Failed to fetch admirers", err)
	}
	return s.joinEdges(ctx, edges, func(c db.Crush) string { return c.ActorUserID })
}

// ListMatches returns the user's matches with the other participant, newest first.
func (s *Service) ListMatches(ctx context.Context, userID string) ([]MatchView, error) {
	if userID == "" {
		return nil, svcErr.InvalidArgument("userId is required")
	}
	matches, err := s.matchRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Internal("Failed to fetch matches", err)
	}

	ids := make([]string, 0, len(matches))
	for i := range matches {
		ids = append(ids, matches[i].Other(userID))
	}
	profiles, err := s.profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]MatchView, 0, len(matches))
	for i := range matches {
		out = append(out, MatchView{
			ID:        matches[i].ID,
			MatchedAt: matches[i].MatchedAt,
			User:      profiles[matches[i].Other(userID)],
		})
	}
	return out, nil
}

func (s *Service) joinEdges(ctx context.Context, edges []db.Crush, other func(db.Crush) string) ([]CrushView, error) {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, other(e))
	}
	profiles, err := s.profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]CrushView, 0, len(edges))
	for _, e := range edges {
		out = append(out, CrushView{
			ID:        e.ID,
			Status:    e.Status,
			CreatedAt: e.CreatedAt,
			User:      profiles[other(e)],
		})
	}
	return out, nil
}

// profiles loads users in one query and keys their public view by id.
func (s *Service) profiles(ctx context.Context, ids []string) (map[string]*user.Profile, error) {
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make(map[string]*user.Profile, len(users))
	for id, u := range users {
		p := user.ToProfile(u)
		out[id] = &p
	}
	return out, nil
}
