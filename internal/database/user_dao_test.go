package database

import (
	"context"
	"strings"
	"testing"

	"github.com/protomem/mini-crm/internal/model"
	"github.com/protomem/mini-crm/internal/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserDAO(t *testing.T) (*UserDAO, *DB) {
	t.Helper()

	db := newTestDB(t)
	hasher := password.BcryptHasher{Cost: bcrypt.MinCost}
	return NewUserDAO(db.Logger, db, hasher), db
}

func TestUserRegister_StoresHashNotPlaintext(t *testing.T) {
	dao, db := newTestUserDAO(t)
	ctx := context.Background()

	id, err := dao.Register(ctx, "alice", "correct horse")
	require.NoError(t, err)
	require.NotZero(t, id)

	var stored string
	require.NoError(t, db.QueryRow(`SELECT password FROM users WHERE id = ?`, id).Scan(&stored))
	assert.NotEqual(t, "correct horse", stored)
	assert.True(t, strings.HasPrefix(stored, "$2a$"), "expected a bcrypt hash, got %q", stored)
}

func TestUserRegister_DuplicateUsername(t *testing.T) {
	dao, _ := newTestUserDAO(t)
	ctx := context.Background()

	_, err := dao.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	_, err = dao.Register(ctx, "alice", "another password")
	require.ErrorIs(t, err, model.ErrExists)
}

func TestUserAuthenticate_Success(t *testing.T) {
	dao, _ := newTestUserDAO(t)
	ctx := context.Background()

	id, err := dao.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	user, err := dao.Authenticate(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "alice", user.Username)
}

func TestUserAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	dao, _ := newTestUserDAO(t)
	ctx := context.Background()

	_, err := dao.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	_, wrongPassword := dao.Authenticate(ctx, "alice", "wrong")
	_, unknownUser := dao.Authenticate(ctx, "nobody", "password1")

	require.ErrorIs(t, wrongPassword, model.ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, model.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error(), "both failures must leak nothing")
}

func TestUserImportInsert_SkipsTakenUsername(t *testing.T) {
	dao, db := newTestUserDAO(t)
	ctx := context.Background()

	dto := ImportUserDTO{
		Username:  "bob",
		Password:  "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt: "2023-01-15 12:00:00",
	}

	inserted, err := dao.ImportInsert(ctx, dto)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = dao.ImportInsert(ctx, dto)
	require.NoError(t, err)
	assert.False(t, inserted)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 1, n)

	// The exported hash is stored verbatim, not re-hashed.
	user, err := dao.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, dto.Password, user.Password)
	assert.Equal(t, dto.CreatedAt, user.CreatedAt)
}
