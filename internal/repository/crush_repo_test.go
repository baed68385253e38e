package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/wholikeme/internal/db"
	"github.com/oggyb/wholikeme/internal/repository"
)

func TestCrushRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewCrushRepository(gdb)

	alice := createUser(t, gdb, "alice@x.com", "Alice")
	bob := createUser(t, gdb, "bob@x.com", "Bob")

	edge, err := repo.CreateEdge(ctx, alice.ID, &bob)
	require.NoError(t, err)
	assert.Equal(t, db.CrushPending, edge.Status)
	assert.Equal(t, "bob@x.com", edge.TargetEmail)

	found, err := repo.FindEdge(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, edge.ID, found.ID)

	// directed: bob → alice does not exist yet
	found, err = repo.FindEdge(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	recip, err := repo.FindReciprocal(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, recip)
	assert.Equal(t, edge.ID, recip.ID)
}

func TestCrushRepository_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewCrushRepository(gdb)

	alice := createUser(t, gdb, "alice@x.com", "Alice")
	bob := createUser(t, gdb, "bob@x.com", "Bob")

	_, err := repo.CreateEdge(ctx, alice.ID, &bob)
	require.NoError(t, err)

	_, err = repo.CreateEdge(ctx, alice.ID, &bob)
	assert.Error(t, err)

	var n int64
	gdb.Model(&db.Crush{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestCrushRepository_UpdateStatusInTx(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewCrushRepository(gdb)

	alice := createUser(t, gdb, "alice@x.com", "Alice")
	bob := createUser(t, gdb, "bob@x.com", "Bob")

	ab, err := repo.CreateEdge(ctx, alice.ID, &bob)
	require.NoError(t, err)
	ba, err := repo.CreateEdge(ctx, bob.ID, &alice)
	require.NoError(t, err)

	err = gdb.Transaction(func(tx *gorm.DB) error {
		return repo.WithTx(tx).UpdateStatus(ctx, db.CrushMatched, ab.ID, ba.ID)
	})
	require.NoError(t, err)

	for _, id := range []string{ab.ID, ba.ID} {
		var c db.Crush
		require.NoError(t, gdb.First(&c, "id = ?", id).Error)
		assert.Equal(t, db.CrushMatched, c.Status)
	}

	assert.NoError(t, repo.UpdateStatus(ctx, db.CrushMatched))
}

func TestCrushRepository_Listings(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewCrushRepository(gdb)

	alice := createUser(t, gdb, "alice@x.com", "Alice")
	bob := createUser(t, gdb, "bob@x.com", "Bob")
	carol := createUser(t, gdb, "carol@x.com", "Carol")

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, gdb.Create(&db.Crush{ActorUserID: alice.ID, TargetUserID: bob.ID, TargetEmail: bob.Email, Status: db.CrushPending, CreatedAt: base}).Error)
	require.NoError(t, gdb.Create(&db.Crush{ActorUserID: alice.ID, TargetUserID: carol.ID, TargetEmail: carol.Email, Status: db.CrushPending, CreatedAt: base.Add(time.Minute)}).Error)
	require.NoError(t, gdb.Create(&db.Crush{ActorUserID: carol.ID, TargetUserID: bob.ID, TargetEmail: bob.Email, Status: db.CrushPending, CreatedAt: base.Add(2 * time.Minute)}).Error)

	mine, err := repo.ListByActor(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, carol.ID, mine[0].TargetUserID, "newest first")

	admirers, err := repo.ListByTarget(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, admirers, 2)
	assert.Equal(t, carol.ID, admirers[0].ActorUserID)
	assert.Equal(t, alice.ID, admirers[1].ActorUserID)
}
