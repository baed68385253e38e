package crush_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/wholikeme/internal/app"
	"github.com/oggyb/wholikeme/internal/cache"
	"github.com/oggyb/wholikeme/internal/config"
	"github.com/oggyb/wholikeme/internal/db"
	svcErr "github.com/oggyb/wholikeme/internal/errors"
	wlog "github.com/oggyb/wholikeme/internal/logger"
	"github.com/oggyb/wholikeme/internal/push"
	"github.com/oggyb/wholikeme/internal/service/crush"
)

//
// Test helpers
//

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []push.Message
}

func (f *fakeSender) Send(_ context.Context, _ string, msg push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeSender) Name() string { return "fake" }

func (f *fakeSender) Sent() []push.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]push.Message(nil), f.sent...)
}

type fixture struct {
	db     *gorm.DB
	mr     *miniredis.Miniredis
	cache  *cache.RedisCache
	sender *fakeSender
	appCtx *app.AppContext
	svc    *crush.Service
	alice  db.User
	bob    db.User
}

// setupService wires a Crush service on an in-memory SQLite DB and a
// miniredis, with alice and bob seeded and both subscribed to push.
func setupService(t *testing.T) *fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbase, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Notify.Language = "en"
	cfg.Crush.PairLockTTL = time.Second
	cfg.Crush.PairLockWait = 50 * time.Millisecond
	redisCache := cache.NewRedisCache(cfg)

	sender := &fakeSender{}
	appCtx := app.New(dbase, redisCache, wlog.Discard(), sender, cfg)

	f := &fixture{
		db:     dbase,
		mr:     mr,
		cache:  redisCache,
		sender: sender,
		appCtx: appCtx,
		svc:    crush.NewCrushService(appCtx),
		alice:  db.User{Email: "alice@x.com", Name: "Alice"},
		bob:    db.User{Email: "bob@x.com", Name: "Bob"},
	}
	require.NoError(t, dbase.Create(&f.alice).Error)
	require.NoError(t, dbase.Create(&f.bob).Error)
	for _, u := range []db.User{f.alice, f.bob} {
		require.NoError(t, dbase.Create(&db.PushSubscription{
			UserID:       u.ID,
			Endpoint:     "https://push.example/" + u.ID,
			Subscription: fmt.Sprintf(`{"endpoint":"https://push.example/%s"}`, u.ID),
		}).Error)
	}
	return f
}

func (f *fixture) edges(t *testing.T) []db.Crush {
	t.Helper()
	var out []db.Crush
	require.NoError(t, f.db.Order("created_at").Find(&out).Error)
	return out
}

func (f *fixture) notifications(t *testing.T, userID, kind string) []db.Notification {
	t.Helper()
	var out []db.Notification
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", userID, kind).Find(&out).Error)
	return out
}

func (f *fixture) countMatches(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&db.Match{}).Count(&n).Error)
	return n
}

//
// Tests
//

func TestAddCrush_Pending(t *testing.T) {
	f := setupService(t)

	res, err := f.svc.AddCrush(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Nil(t, res.Match)
	assert.Equal(t, "Crush added!", res.Message)

	edges := f.edges(t)
	require.Len(t, edges, 1)
	assert.Equal(t, f.alice.ID, edges[0].ActorUserID)
	assert.Equal(t, f.bob.ID, edges[0].TargetUserID)
	assert.Equal(t, "bob@x.com", edges[0].TargetEmail)
	assert.Equal(t, db.CrushPending, edges[0].Status)

	crushNotes := f.notifications(t, f.bob.ID, db.NotificationNewCrush)
	require.Len(t, crushNotes, 1)
	assert.Equal(t, "Alice added you as a crush 💕", crushNotes[0].MessageEN)
	require.NotNil(t, crushNotes[0].FromUserID)
	assert.Equal(t, f.alice.ID, *crushNotes[0].FromUserID)

	assert.Empty(t, f.notifications(t, f.alice.ID, db.NotificationNewCrush))
	assert.Zero(t, f.countMatches(t))

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "New crush!", sent[0].Title)
}

func TestAddCrush_MutualCreatesMatch(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.AddCrush(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	res, err := f.svc.AddCrush(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "🎉 It's a match! You added each other!", res.Message)
	require.NotNil(t, res.Match)
	assert.Less(t, res.Match.User1ID, res.Match.User2ID)

	var matches []db.Match
	require.NoError(t, f.db.Find(&matches).Error)
	require.Len(t, matches, 1)
	assert.ElementsMatch(t, []string{f.alice.ID, f.bob.ID}, []string{matches[0].User1ID, matches[0].User2ID})

	for _, e := range f.edges(t) {
		assert.Equal(t, db.CrushMatched, e.Status)
	}

	aliceMatch := f.notifications(t, f.alice.ID, db.NotificationNewMatch)
	bobMatch := f.notifications(t, f.bob.ID, db.NotificationNewMatch)
	require.Len(t, aliceMatch, 1)
	require.Len(t, bobMatch, 1)
	assert.Equal(t, "You and Bob added each other!", aliceMatch[0].MessageEN)
	assert.Equal(t, "You and Alice added each other!", bobMatch[0].MessageEN)
	assert.Equal(t, f.bob.ID, *aliceMatch[0].FromUserID)
	assert.Equal(t, f.alice.ID, *bobMatch[0].FromUserID)

	// the second add also told alice about bob's crush
	assert.Len(t, f.notifications(t, f.alice.ID, db.NotificationNewCrush), 1)
}

func TestAddCrush_ExistingMatchIsReused(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	lo, hi := f.alice.ID, f.bob.ID
	if hi < lo {
		lo, hi = hi, lo
	}
	require.NoError(t, f.db.Create(&db.Match{User1ID: lo, User2ID: hi}).Error)

	_, err := f.svc.AddCrush(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	res, err := f.svc.AddCrush(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)

	assert.True(t, res.Matched)
	assert.Equal(t, int64(1), f.countMatches(t))
}

func TestAddCrush_SelfRejected(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.AddCrush(ctx, f.alice.ID, f.alice.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidRequest))

	_, err = f.svc.AddCrush(ctx, f.alice.ID, "Alice@X.com")
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidRequest))

	assert.Empty(t, f.edges(t))
	var n int64
	f.db.Model(&db.Notification{}).Count(&n)
	assert.Zero(t, n)
}

func TestAddCrush_MissingFields(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.AddCrush(context.Background(), "", f.bob.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidRequest))
	_, err = f.svc.AddCrush(context.Background(), f.alice.ID, "")
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidRequest))
}

func TestAddCrush_DuplicateConflict(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.AddCrush(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	first := f.edges(t)[0]

	_, err = f.svc.AddCrush(ctx, f.alice.ID, "bob@x.com")
	assert.True(t, svcErr.Is(err, svcErr.KindConflict))

	edges := f.edges(t)
	require.Len(t, edges, 1)
	assert.Equal(t, first.ID, edges[0].ID)
	assert.Equal(t, db.CrushPending, edges[0].Status)
	assert.Len(t, f.notifications(t, f.bob.ID, db.NotificationNewCrush), 1)
}

func TestAddCrush_UnknownUsers(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.AddCrush(ctx, f.alice.ID, "ghost@x.com")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	_, err = f.svc.AddCrush(ctx, "no-such-user", f.bob.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	assert.Empty(t, f.edges(t))
}

func TestAddCrush_PushFailureStillSucceeds(t *testing.T) {
	f := setupService(t)
	f.sender.err = errors.New("push service unavailable")

	res, err := f.svc.AddCrush(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, res.Matched)

	assert.Len(t, f.edges(t), 1)
	assert.Len(t, f.notifications(t, f.bob.ID, db.NotificationNewCrush), 1)
}

func TestAddCrush_NotificationFailureIgnored(t *testing.T) {
	f := setupService(t)
	require.NoError(t, f.db.Migrator().DropTable(&db.Notification{}))

	res, err := f.svc.AddCrush(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Len(t, f.edges(t), 1)
	assert.Empty(t, f.sender.Sent())
}

func TestAddCrush_MatchRollsBackOnFailure(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.AddCrush(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	// fail the status flip that follows the match insert
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").
		Register("test:fail_update", func(tx *gorm.DB) {
			_ = tx.AddError(errors.New("disk full"))
		}))

	_, err = f.svc.AddCrush(ctx, f.bob.ID, f.alice.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindInternal))

	edges := f.edges(t)
	require.Len(t, edges, 1)
	assert.Equal(t, f.alice.ID, edges[0].ActorUserID)
	assert.Equal(t, db.CrushPending, edges[0].Status)
	assert.Zero(t, f.countMatches(t))
	assert.Empty(t, f.notifications(t, f.alice.ID, db.NotificationNewMatch))
}

func TestAddCrush_RedisDown(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.mr.Close()

	_, err := f.svc.AddCrush(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	res, err := f.svc.AddCrush(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, int64(1), f.countMatches(t))
}

func TestAddCrush_BusyLockProceeds(t *testing.T) {
	f := setupService(t)
	key := f.cache.KeyForPairLock(f.alice.ID, f.bob.ID)
	require.NoError(t, f.mr.Set(key, "someone-else"))

	_, err := f.svc.AddCrush(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	// a lock held by someone else is left alone
	v, err := f.mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestAddCrush_ReleasesLock(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.AddCrush(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(f.cache.KeyForPairLock(f.alice.ID, f.bob.ID)))
}

func TestListings(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	carol := db.User{Email: "carol@x.com", Name: "Carol"}
	require.NoError(t, f.db.Create(&carol).Error)

	_, err := f.svc.AddCrush(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.AddCrush(ctx, f.alice.ID, carol.ID)
	require.NoError(t, err)
	_, err = f.svc.AddCrush(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)

	crushes, err := f.svc.ListCrushes(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, crushes, 2)
	status := map[string]string{}
	for _, c := range crushes {
		require.NotNil(t, c.User)
		status[c.User.Name] = c.Status
	}
	assert.Equal(t, map[string]string{"Bob": db.CrushMatched, "Carol": db.CrushPending}, status)

	admirers, err := f.svc.ListAdmirers(ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, admirers, 1)
	assert.Equal(t, f.alice.ID, admirers[0].User.ID)

	_, err = f.svc.ListAdmirers(ctx, "no-such-user")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	matches, err := f.svc.ListMatches(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, f.alice.ID, matches[0].User.ID)

	matches, err = f.svc.ListMatches(ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = f.svc.ListCrushes(ctx, "")
	assert.True(t, svcErr.Is(err, svcErr.KindInvalidRequest))
}
