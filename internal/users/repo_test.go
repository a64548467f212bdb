package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bastianns/tubes-lasti-t08/pkg/db/models"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:users_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	user := &models.User{Username: "apoteker", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEqual(t, uuid.Nil, user.ID)

	byName, err := repo.FindByUsername(ctx, "apoteker")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "apoteker", byID.Username)
}

func TestRepositoryFindUnknownUsername(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryRejectsDuplicateUsername(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "apoteker", PasswordHash: "hash"}))
	err := repo.Create(ctx, &models.User{Username: "apoteker", PasswordHash: "other"})
	assert.Error(t, err)
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	user := &models.User{Username: "apoteker", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	require.Nil(t, user.LastLoginAt)

	at := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, at.Unix(), stored.LastLoginAt.Unix())
}
