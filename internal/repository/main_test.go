package repository

import (
	"testing"

	"odinbook/internal/cache"
	"odinbook/internal/models"
	"odinbook/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	cache.SetClient(nil)
	return testutil.NewSQLiteDB(t)
}

func seedUser(t *testing.T, repo UserRepository, username string) *models.User {
	t.Helper()
	u := &models.User{Name: username, Username: username, PasswordHash: "hash-" + username}
	require.NoError(t, repo.Create(t.Context(), u))
	return u
}
