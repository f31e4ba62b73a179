package database

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/protomem/mini-crm/internal/model"
)

const (
	_clientIDPrefix = "GD"

	// Attempts at count-then-insert before giving up. A retry only happens
	// when a concurrent create takes the freshly counted id first.
	_allocAttempts = 3
)

type ClientDAO struct {
	Logger *slog.Logger
	*DB
}

func NewClientDAO(logger *slog.Logger, db *DB) *ClientDAO {
	return &ClientDAO{
		Logger: logger.With("dao", "client"),
		DB:     db,
	}
}

// FormatClientID renders the human-readable client identifier, e.g.
// "GD-2024-003" for the third client of 2024.
func FormatClientID(year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", _clientIDPrefix, year, seq)
}

type rowQueryer interface {
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

// countInYear counts clients whose stored creation timestamp falls in year.
// The timestamp layout starts with the year, so a prefix match is exact.
func (dao *ClientDAO) countInYear(ctx context.Context, q rowQueryer, year int) (int, error) {
	query, args, err := dao.Builder.
		Select("COUNT(*)").
		From("clients").
		Where(squirrel.Like{"date_created": strconv.Itoa(year) + "%"}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := q.QueryRowxContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// PreviewClientID computes the id the next create in year would get. It does
// not reserve anything: a create racing with the preview can take the id.
func (dao *ClientDAO) PreviewClientID(ctx context.Context, year int) (string, error) {
	logger := dao.Logger.With("query", "previewClientId")

	count, err := dao.countInYear(ctx, dao.DB, year)
	if err != nil {
		logger.Warn("failed query execute", "error", err)
		return "", err
	}

	return FormatClientID(year, count+1), nil
}

type InsertClientDTO struct {
	ProjectName   string
	ClientContact string
	TechnicalTask *string
	Status        model.ClientStatus
	Price         *float64
	DeadlineDays  *int64
	Notes         *string
}

// Insert creates a client record, allocating its human-readable id for the
// current year. Count and insert run in one transaction; losing the id to a
// concurrent create shows up as a unique violation and the allocation is
// redone with a fresh count.
func (dao *ClientDAO) Insert(ctx context.Context, dto InsertClientDTO) (model.ID, string, error) {
	logger := dao.Logger.With("query", "insert")

	now := time.Now().UTC()

	status := dto.Status
	if status == "" {
		status = model.StatusNew
	}

	var (
		id       model.ID
		clientID string
		err      error
	)
	for attempt := 1; attempt <= _allocAttempts; attempt++ {
		err = dao.WithTx(ctx, func(tx *sqlx.Tx) error {
			count, err := dao.countInYear(ctx, tx, now.Year())
			if err != nil {
				return err
			}
			clientID = FormatClientID(now.Year(), count+1)

			query, args, err := dao.Builder.
				Insert("clients").
				Columns(
					"client_id", "project_name", "client_contact", "technical_task",
					"status", "price", "deadline_days", "notes", "date_created", "days_passed",
				).
				Values(
					clientID, dto.ProjectName, dto.ClientContact, dto.TechnicalTask,
					status, dto.Price, dto.DeadlineDays, dto.Notes, now.Format(model.TimeLayout), 0,
				).
				ToSql()
			if err != nil {
				return err
			}

			logger.Debug("build query", "sql", query, "args", args)

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}

			lastID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			id = model.ID(lastID)

			return nil
		})
		if err == nil {
			logger.Debug("success query execute", "insertId", id, "clientId", clientID)
			return id, clientID, nil
		}
		if !IsUniqueViolation(err) {
			break
		}

		logger.Debug("client id taken, reallocating", "clientId", clientID, "attempt", attempt)
	}

	logger.Warn("failed query execute", "error", err)

	return 0, "", err
}

// RefreshDaysPassed recomputes the days_passed projection for every client.
func (dao *ClientDAO) RefreshDaysPassed(ctx context.Context) error {
	return dao.refreshDaysPassed(ctx, nil)
}

// RefreshDaysPassedOne recomputes the days_passed projection for one client.
// A missing row is a no-op; the subsequent read reports it.
func (dao *ClientDAO) RefreshDaysPassedOne(ctx context.Context, id model.ID) error {
	return dao.refreshDaysPassed(ctx, &id)
}

func (dao *ClientDAO) refreshDaysPassed(ctx context.Context, id *model.ID) error {
	logger := dao.Logger.With("query", "refreshDaysPassed")

	sel := dao.Builder.Select("id", "date_created").From("clients")
	if id != nil {
		sel = sel.Where(squirrel.Eq{"id": *id})
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return err
	}

	return dao.WithTx(ctx, func(tx *sqlx.Tx) error {
		var rows []struct {
			ID          model.ID `db:"id"`
			DateCreated *string  `db:"date_created"`
		}
		if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
			logger.Warn("failed query execute", "error", err)
			return err
		}

		now := time.Now().UTC()
		for _, row := range rows {
			if row.DateCreated == nil {
				continue
			}

			created, err := time.Parse(model.TimeLayout, *row.DateCreated)
			if err != nil {
				// Legacy rows with an unparseable timestamp keep their
				// stored value.
				logger.Debug("skipping days refresh", "id", row.ID, "error", err)
				continue
			}

			days := int64(math.Floor(now.Sub(created).Hours() / 24))

			update, uargs, err := dao.Builder.
				Update("clients").
				SetMap(map[string]any{"days_passed": days}).
				Where(squirrel.Eq{"id": row.ID}).
				ToSql()
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, update, uargs...); err != nil {
				logger.Warn("failed query execute", "error", err)
				return err
			}
		}

		logger.Debug("success query execute", "countRefreshed", len(rows))

		return nil
	})
}

// List refreshes the days_passed projection and returns every client,
// newest first.
func (dao *ClientDAO) List(ctx context.Context) ([]model.Client, error) {
	logger := dao.Logger.With("query", "list")

	if err := dao.RefreshDaysPassed(ctx); err != nil {
		return nil, err
	}

	query, args, err := dao.Builder.
		Select("*").
		From("clients").
		OrderBy("date_created DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	clients := make([]model.Client, 0)
	if err := dao.SelectContext(ctx, &clients, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)
		return nil, err
	}

	logger.Debug("success query execute", "countClients", len(clients))

	return clients, nil
}

func (dao *ClientDAO) Get(ctx context.Context, id model.ID) (model.Client, error) {
	logger := dao.Logger.With("query", "get")

	if err := dao.RefreshDaysPassedOne(ctx, id); err != nil {
		return model.Client{}, err
	}

	query, args, err := dao.Builder.
		Select("*").
		From("clients").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Client{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var client model.Client
	row := dao.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&client); err != nil {
		if IsNoRows(err) {
			return model.Client{}, model.NewError("client", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.Client{}, err
	}

	return client, nil
}

type UpdateClientDTO struct {
	ProjectName   string
	ClientContact string
	TechnicalTask *string
	Status        model.ClientStatus
	Price         *float64
	DeadlineDays  *int64
	Notes         *string
}

// Update replaces every mutable field; optional fields left out of the
// payload are cleared. client_id and date_created never change.
func (dao *ClientDAO) Update(ctx context.Context, id model.ID, dto UpdateClientDTO) error {
	logger := dao.Logger.With("query", "update")

	status := dto.Status
	if status == "" {
		status = model.StatusNew
	}

	query, args, err := dao.Builder.
		Update("clients").
		SetMap(map[string]any{
			"project_name":   dto.ProjectName,
			"client_contact": dto.ClientContact,
			"technical_task": dto.TechnicalTask,
			"status":         status,
			"price":          dto.Price,
			"deadline_days":  dto.DeadlineDays,
			"notes":          dto.Notes,
		}).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	res, err := dao.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Warn("failed query execute", "error", err)
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.NewError("client", model.ErrNotFound)
	}

	logger.Debug("success query execute", "updateId", id)

	return nil
}

// Delete removes a client. Deleting an absent id succeeds; existed only
// tells the caller whether a row was actually there.
func (dao *ClientDAO) Delete(ctx context.Context, id model.ID) (existed bool, err error) {
	logger := dao.Logger.With("query", "delete")

	query, args, err := dao.Builder.
		Delete("clients").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	res, err := dao.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Warn("failed query execute", "error", err)
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	logger.Debug("success query execute", "deleteId", id, "existed", affected > 0)

	return affected > 0, nil
}

type ImportClientDTO struct {
	ClientID      *string
	ProjectName   string
	ClientContact string
	TechnicalTask *string
	Status        model.ClientStatus
	Price         *float64
	DeadlineDays  *int64
	Notes         *string
	DateCreated   string
	DaysPassed    int64
}

// ImportInsert restores an exported row, keeping its original client_id,
// creation timestamp and days_passed. Rows colliding with an existing
// client_id are skipped rather than failing the whole import.
func (dao *ClientDAO) ImportInsert(ctx context.Context, dto ImportClientDTO) (inserted bool, err error) {
	logger := dao.Logger.With("query", "importInsert")

	query, args, err := dao.Builder.
		Insert("clients").
		Options("OR IGNORE").
		Columns(
			"client_id", "project_name", "client_contact", "technical_task",
			"status", "price", "deadline_days", "notes", "date_created", "days_passed",
		).
		Values(
			dto.ClientID, dto.ProjectName, dto.ClientContact, dto.TechnicalTask,
			dto.Status, dto.Price, dto.DeadlineDays, dto.Notes, dto.DateCreated, dto.DaysPassed,
		).
		ToSql()
	if err != nil {
		return false, err
	}

	logger.Debug("build query", "sql", query, "args", args)

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
