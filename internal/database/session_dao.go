package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/protomem/mini-crm/internal/model"
)

type SessionDAO struct {
	Logger *slog.Logger
	*DB
}

func NewSessionDAO(logger *slog.Logger, db *DB) *SessionDAO {
	return &SessionDAO{
		Logger: logger.With("dao", "session"),
		DB:     db,
	}
}

type InsertSessionDTO struct {
	UserID model.ID
	TTL    time.Duration
}

// Insert creates a session row and returns its opaque token.
func (dao *SessionDAO) Insert(ctx context.Context, dto InsertSessionDTO) (string, error) {
	logger := dao.Logger.With("query", "insert")

	now := time.Now().UTC()
	token := uuid.NewString()

	query, args, err := dao.Builder.
		Insert("sessions").
		Columns("token", "user_id", "created_at", "expires_at").
		Values(token, dto.UserID, now.Format(model.TimeLayout), now.Add(dto.TTL).Format(model.TimeLayout)).
		ToSql()
	if err != nil {
		return "", err
	}

	logger.Debug("build query", "sql", query)

	if _, err := dao.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)
		return "", err
	}

	logger.Debug("success query execute", "userId", dto.UserID)

	return token, nil
}

// GetByToken returns the live session for token. Expired or unknown tokens
// come back as model.ErrNotFound.
func (dao *SessionDAO) GetByToken(ctx context.Context, token string) (model.Session, error) {
	logger := dao.Logger.With("query", "getByToken")

	query, args, err := dao.Builder.
		Select("*").
		From("sessions").
		Where(squirrel.Eq{"token": token}).
		Where(squirrel.Gt{"expires_at": time.Now().UTC().Format(model.TimeLayout)}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Session{}, err
	}

	var session model.Session
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&session); err != nil {
		if IsNoRows(err) {
			return model.Session{}, model.NewError("session", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Session{}, err
	}

	return session, nil
}

func (dao *SessionDAO) DeleteByToken(ctx context.Context, token string) error {
	logger := dao.Logger.With("query", "deleteByToken")

	query, args, err := dao.Builder.
		Delete("sessions").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := dao.ExecContext(ctx, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)
		return err
	}

	return nil
}

// DeleteExpired drops dead session rows. Called opportunistically on login.
func (dao *SessionDAO) DeleteExpired(ctx context.Context) error {
	logger := dao.Logger.With("query", "deleteExpired")

	query, args, err := dao.Builder.
		Delete("sessions").
		Where(squirrel.LtOrEq{"expires_at": time.Now().UTC().Format(model.TimeLayout)}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := dao.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Warn("failed query execute", "error", err)
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		logger.Debug("success query execute", "countDeleted", affected)
	}

	return nil
}
