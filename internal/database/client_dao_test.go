package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/protomem/mini-crm/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestClientInsert_SequentialIDsWithinYear(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	year := time.Now().UTC().Year()

	for i := 1; i <= 3; i++ {
		_, clientID, err := dao.Insert(ctx, InsertClientDTO{
			ProjectName:   fmt.Sprintf("project %d", i),
			ClientContact: "someone@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("GD-%d-%03d", year, i), clientID)
	}

	preview, err := dao.PreviewClientID(ctx, year)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("GD-%d-004", year), preview)
}

func TestClientInsert_YearPartitionsAreIndependent(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	// Seed a record from a previous year directly.
	_, err := db.Exec(
		`INSERT INTO clients (client_id, project_name, client_contact, date_created, days_passed)
		 VALUES ('GD-2020-001', 'old', 'old@example.com', '2020-06-01 10:00:00', 0)`,
	)
	require.NoError(t, err)

	year := time.Now().UTC().Year()

	_, clientID, err := dao.Insert(ctx, InsertClientDTO{
		ProjectName:   "fresh",
		ClientContact: "new@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("GD-%d-001", year), clientID, "old years must not advance the current sequence")

	preview, err := dao.PreviewClientID(ctx, 2020)
	require.NoError(t, err)
	assert.Equal(t, "GD-2020-002", preview)
}

func TestClientInsert_ConcurrentCreatesGetUniqueIDs(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	const workers = 8

	var (
		mu  sync.Mutex
		ids = make(map[string]struct{}, workers)
		wg  sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, clientID, err := dao.Insert(ctx, InsertClientDTO{
				ProjectName:   fmt.Sprintf("project %d", i),
				ClientContact: "someone@example.com",
			})
			assert.NoError(t, err)

			mu.Lock()
			ids[clientID] = struct{}{}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, ids, workers, "every concurrent create must get its own id")
	assert.Equal(t, workers, countClients(t, db))
}

func TestClientRoundTrip_AllFields(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	id, clientID, err := dao.Insert(ctx, InsertClientDTO{
		ProjectName:   "landing page",
		ClientContact: "@someone",
		TechnicalTask: ptr("three screens, dark theme"),
		Status:        model.StatusInProgress,
		Price:         ptr(1500.0),
		DeadlineDays:  ptr(int64(14)),
		Notes:         ptr("prepayment received"),
	})
	require.NoError(t, err)

	got, err := dao.Get(ctx, id)
	require.NoError(t, err)

	require.NotNil(t, got.ClientID)
	assert.Equal(t, clientID, *got.ClientID)
	assert.Equal(t, "landing page", got.ProjectName)
	assert.Equal(t, "@someone", got.ClientContact)
	assert.Equal(t, ptr("three screens, dark theme"), got.TechnicalTask)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, ptr(1500.0), got.Price)
	assert.Equal(t, ptr(int64(14)), got.DeadlineDays)
	assert.Equal(t, ptr("prepayment received"), got.Notes)
	assert.EqualValues(t, 0, got.DaysPassed)
}

func TestClientRoundTrip_OmittedOptionalsAreNull(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	id, _, err := dao.Insert(ctx, InsertClientDTO{
		ProjectName:   "bot",
		ClientContact: "+1 555 0100",
	})
	require.NoError(t, err)

	got, err := dao.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, model.StatusNew, got.Status, "status defaults to New")
	assert.Nil(t, got.TechnicalTask)
	assert.Nil(t, got.Price)
	assert.Nil(t, got.DeadlineDays)
	assert.Nil(t, got.Notes)
}

func TestClientUpdate_ReplacesAndClearsFields(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	id, clientID, err := dao.Insert(ctx, InsertClientDTO{
		ProjectName:   "shop",
		ClientContact: "old contact",
		Price:         ptr(900.0),
		Notes:         ptr("to be cleared"),
	})
	require.NoError(t, err)

	err = dao.Update(ctx, id, UpdateClientDTO{
		ProjectName:   "shop v2",
		ClientContact: "new contact",
		Status:        model.StatusCompleted,
		DeadlineDays:  ptr(int64(7)),
		// Price and Notes omitted: a full replace clears them.
	})
	require.NoError(t, err)

	got, err := dao.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "shop v2", got.ProjectName)
	assert.Equal(t, "new contact", got.ClientContact)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, ptr(int64(7)), got.DeadlineDays)
	assert.Nil(t, got.Price, "omitted optional field must be cleared")
	assert.Nil(t, got.Notes, "omitted optional field must be cleared")

	require.NotNil(t, got.ClientID)
	assert.Equal(t, clientID, *got.ClientID, "client_id is immutable")
}

func TestClientUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)

	err := dao.Update(context.Background(), 12345, UpdateClientDTO{
		ProjectName:   "ghost",
		ClientContact: "nobody",
	})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestClientDelete_Idempotent(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	id, _, err := dao.Insert(ctx, InsertClientDTO{
		ProjectName:   "short lived",
		ClientContact: "someone",
	})
	require.NoError(t, err)

	existed, err := dao.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = dao.Delete(ctx, id)
	require.NoError(t, err, "deleting an absent id still succeeds")
	assert.False(t, existed)

	_, err = dao.Get(ctx, id)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestClientList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	var ids []model.ID
	for i := 0; i < 3; i++ {
		id, _, err := dao.Insert(ctx, InsertClientDTO{
			ProjectName:   fmt.Sprintf("project %d", i),
			ClientContact: "someone",
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	clients, err := dao.List(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 3)

	assert.Equal(t, ids[2], clients[0].ID)
	assert.Equal(t, ids[1], clients[1].ID)
	assert.Equal(t, ids[0], clients[2].ID)
}

func TestRefreshDaysPassed_ComputesWholeDays(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	threeDaysAgo := time.Now().UTC().AddDate(0, 0, -3).Format(model.TimeLayout)
	res, err := db.Exec(
		`INSERT INTO clients (client_id, project_name, client_contact, date_created, days_passed)
		 VALUES ('GD-2024-001', 'aged', 'someone', ?, 0)`,
		threeDaysAgo,
	)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	got, err := dao.Get(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.DaysPassed)

	clients, err := dao.List(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.EqualValues(t, 3, clients[0].DaysPassed)
}

func TestRefreshDaysPassed_ToleratesBadTimestamps(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	_, err := db.Exec(
		`INSERT INTO clients (project_name, client_contact, date_created, days_passed)
		 VALUES ('broken clock', 'someone', 'not-a-timestamp', 42)`,
	)
	require.NoError(t, err)

	clients, err := dao.List(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.EqualValues(t, 42, clients[0].DaysPassed, "unparseable timestamps keep the stored value")
}

func TestClientImportInsert_SkipsTakenClientID(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)
	ctx := context.Background()

	dto := ImportClientDTO{
		ClientID:      ptr("GD-2023-001"),
		ProjectName:   "imported",
		ClientContact: "someone",
		Status:        model.StatusCompleted,
		DateCreated:   "2023-02-01 09:00:00",
		DaysPassed:    10,
	}

	inserted, err := dao.ImportInsert(ctx, dto)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = dao.ImportInsert(ctx, dto)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate client_id must be skipped, not fail")

	assert.Equal(t, 1, countClients(t, db))
}

func TestClientGet_ErrorsAreErrNotFound(t *testing.T) {
	db := newTestDB(t)
	dao := NewClientDAO(db.Logger, db)

	_, err := dao.Get(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
