package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/wholikeme/internal/db"
	"github.com/oggyb/wholikeme/internal/repository"
)

func TestUserRepository_FindByIDAndEmail(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewUserRepository(gdb)

	alice := createUser(t, gdb, "alice@x.com", "Alice")
	assert.Len(t, alice.ID, 36)

	got, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", got.Email)

	got, err = repo.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = repo.FindByEmail(ctx, "nobody@x.com")
	assert.True(t, repository.IsNotFound(err))
}

func TestUserRepository_InterestsRoundTrip(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewUserRepository(gdb)

	u := &db.User{Email: "i@x.com", Interests: []string{"music", "hiking"}}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"music", "hiking"}, got.Interests)
}

func TestUserRepository_FindByIDs(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewUserRepository(gdb)

	a := createUser(t, gdb, "a@x.com", "A")
	b := createUser(t, gdb, "b@x.com", "B")

	users, err := repo.FindByIDs(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "B", users[b.ID].Name)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserRepository_UpdateFields(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewUserRepository(gdb)

	a := createUser(t, gdb, "a@x.com", "")
	require.NoError(t, repo.UpdateFields(ctx, a.ID, map[string]any{"name": "Anna"}))

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.Name)

	err = repo.UpdateFields(ctx, "missing", map[string]any{"name": "x"})
	assert.True(t, repository.IsNotFound(err))
}

func TestUserRepository_UpdateColumns(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewUserRepository(gdb)

	a := &db.User{Email: "a@x.com", Name: "A", Bio: "old bio", Image: "https://img/a.png"}
	require.NoError(t, repo.Create(ctx, a))

	age := 30
	require.NoError(t, repo.UpdateColumns(ctx, a.ID,
		&db.User{Age: &age, Interests: []string{"chess"}},
		"age", "bio", "interests"))

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Age)
	assert.Equal(t, 30, *got.Age)
	assert.Equal(t, []string{"chess"}, got.Interests)
	assert.Empty(t, got.Bio, "selected zero values are written")
	assert.Equal(t, "https://img/a.png", got.Image, "unselected columns are kept")

	err = repo.UpdateColumns(ctx, "missing", &db.User{}, "bio")
	assert.True(t, repository.IsNotFound(err))
}

func TestUserRepository_Search(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewUserRepository(gdb)

	me := createUser(t, gdb, "alicia@x.com", "Alicia")
	createUser(t, gdb, "alice@x.com", "Alice")
	createUser(t, gdb, "bob@x.com", "Bob")
	createUser(t, gdb, "pct@x.com", "100% Ali")

	users, err := repo.Search(ctx, "ALI", me.ID)
	require.NoError(t, err)

	var names []string
	for _, u := range users {
		names = append(names, u.Name)
	}
	assert.ElementsMatch(t, []string{"Alice", "100% Ali"}, names)

	// wildcard is literal
	users, err = repo.Search(ctx, "%", "")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "100% Ali", users[0].Name)
}

func TestUserRepository_SearchLimit(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewUserRepository(gdb)

	for i := 0; i < repository.SearchLimit+5; i++ {
		u := db.User{Email: "u" + string(rune('a'+i)) + "@x.com", Name: "Sam"}
		require.NoError(t, gdb.Create(&u).Error)
	}

	users, err := repo.Search(ctx, "sam", "")
	require.NoError(t, err)
	assert.Len(t, users, repository.SearchLimit)
}
