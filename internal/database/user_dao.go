package database

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/protomem/mini-crm/internal/model"
	"github.com/protomem/mini-crm/internal/password"
)

type UserDAO struct {
	Logger *slog.Logger
	Hasher password.Hasher
	*DB
}

func NewUserDAO(logger *slog.Logger, db *DB, hasher password.Hasher) *UserDAO {
	return &UserDAO{
		Logger: logger.With("dao", "user"),
		Hasher: hasher,
		DB:     db,
	}
}

// Register stores a new account with a one-way hash of the password.
// A taken username comes back as model.ErrExists.
func (dao *UserDAO) Register(ctx context.Context, username, plaintext string) (model.ID, error) {
	logger := dao.Logger.With("query", "register")

	hashed, err := dao.Hasher.Hash(plaintext)
	if err != nil {
		return 0, err
	}

	query, args, err := dao.Builder.
		Insert("users").
		Columns("username", "password", "created_at").
		Values(username, hashed, time.Now().UTC().Format(model.TimeLayout)).
		ToSql()
	if err != nil {
		return 0, err
	}

	logger.Debug("build query", "sql", query)

	res, err := dao.ExecContext(ctx, query, args...)
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, model.NewError("user", model.ErrExists)
		}

		logger.Warn("failed query execute", "error", err)

		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	logger.Debug("success query execute", "insertId", id, "username", username)

	return model.ID(id), nil
}

// Authenticate verifies a username/password pair. An unknown username and a
// wrong password both come back as the same model.ErrInvalidCredentials.
func (dao *UserDAO) Authenticate(ctx context.Context, username, plaintext string) (model.User, error) {
	user, err := dao.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, model.ErrInvalidCredentials
		}

		return model.User{}, err
	}

	matches, err := dao.Hasher.Matches(plaintext, user.Password)
	if err != nil || !matches {
		return model.User{}, model.ErrInvalidCredentials
	}

	return user, nil
}

func (dao *UserDAO) Get(ctx context.Context, id model.ID) (model.User, error) {
	return dao.get(ctx, squirrel.Eq{"id": id})
}

func (dao *UserDAO) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return dao.get(ctx, squirrel.Eq{"username": username})
}

func (dao *UserDAO) get(ctx context.Context, where squirrel.Eq) (model.User, error) {
	logger := dao.Logger.With("query", "get")

	query, args, err := dao.Builder.
		Select("*").
		From("users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&user); err != nil {
		if IsNoRows(err) {
			return model.User{}, model.NewError("user", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.User{}, err
	}

	return user, nil
}

type ImportUserDTO struct {
	Username  string
	Password  string // already hashed by the exporting side
	CreatedAt string
	FullName  *string
}

// ImportInsert restores an exported account. Accounts whose username is
// already taken are skipped rather than failing the whole import.
func (dao *UserDAO) ImportInsert(ctx context.Context, dto ImportUserDTO) (inserted bool, err error) {
	logger := dao.Logger.With("query", "importInsert")

	createdAt := dto.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(model.TimeLayout)
	}

	query, args, err := dao.Builder.
		Insert("users").
		Options("OR IGNORE").
		Columns("username", "password", "created_at", "full_name").
		Values(dto.Username, dto.Password, createdAt, dto.FullName).
		ToSql()
	if err != nil {
		return false, err
	}

	logger.Debug("build query", "sql", query)

	res, err := dao.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Warn("failed query execute", "error", err)
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
