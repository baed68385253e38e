package repository_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/wholikeme/internal/db"
)

// setupTestDB opens an isolated in-memory sqlite DB with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return setupTestDBWithClock(t, func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) })
}

// setupTestDBWithClock is setupTestDB with a custom gorm clock.
func setupTestDBWithClock(t *testing.T, now func() time.Time) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		NowFunc:        now,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

func createUser(t *testing.T, gdb *gorm.DB, email, name string) db.User {
	t.Helper()
	u := db.User{Email: email, Name: name}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}
