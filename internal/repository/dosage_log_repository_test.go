package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shecares/shecares-backend/internal/model"
)

var logCols = []string{
	"id", "user_id", "medicine_id", "medicine_name", "scheduled_at", "status",
	"taken_at", "tablets_per_dose", "slot", "note", "created_at", "updated_at",
}

func logRow(id uint64, user string, medID uint64, at time.Time, status string) *sqlmock.Rows {
	return sqlmock.NewRows(logCols).
		AddRow(id, user, medID, "Iron", at, status, nil, uint32(1), "MORNING", "", at, at)
}

func TestCreateBatchSkipsDuplicates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDosageLogRepo(db)

	at1 := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)
	at2 := time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC)
	logs := []model.DosageLog{
		{UserID: "u1", MedicineID: 5, MedicineName: "Iron", ScheduledAt: at1, TabletsPerDose: 1, Slot: model.SlotMorning},
		{UserID: "u1", MedicineID: 5, MedicineName: "Iron", ScheduledAt: at2, TabletsPerDose: 1, Slot: model.SlotNight},
	}

	insertRe := regexp.QuoteMeta("INSERT IGNORE INTO dosage_logs")
	mock.ExpectBegin()
	mock.ExpectExec(insertRe).
		WithArgs("u1", uint64(5), "Iron", at1, model.StatusPending, uint32(1), "MORNING", "").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM dosage_logs WHERE id = ?")).
		WithArgs(int64(11)).
		WillReturnRows(logRow(11, "u1", 5, at1, model.StatusPending))
	// second slot already generated: engine reports 0 affected rows
	mock.ExpectExec(insertRe).
		WithArgs("u1", uint64(5), "Iron", at2, model.StatusPending, uint32(1), "NIGHT", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	created, err := repo.CreateBatch(context.Background(), logs)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, uint64(11), created[0].ID)
	assert.Equal(t, model.StatusPending, created[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDosageLogRepo(db)

	created, err := repo.CreateBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchOrCreateReturnsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDosageLogRepo(db)

	at := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO dosage_logs")).
		WithArgs("u1", uint64(5), "Iron", at, model.StatusPending, uint32(1), "MORNING", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND medicine_id = ? AND scheduled_at = ?")).
		WithArgs("u1", uint64(5), at).
		WillReturnRows(logRow(7, "u1", 5, at, model.StatusPending))

	got, created, err := repo.FetchOrCreate(context.Background(), &model.DosageLog{
		UserID: "u1", MedicineID: 5, MedicineName: "Iron", ScheduledAt: at, TabletsPerDose: 1, Slot: model.SlotMorning,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint64(7), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMissedTransitions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDosageLogRepo(db)

	at := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dosage_logs SET status = ?")).
		WithArgs(model.StatusMissed, uint64(9), "u1", model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? AND user_id = ?")).
		WithArgs(uint64(9), "u1").
		WillReturnRows(logRow(9, "u1", 5, at, model.StatusMissed))

	l, err := repo.MarkMissed(context.Background(), 9, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusMissed, l.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMissedNotFoundForForeignUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDosageLogRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE dosage_logs SET status = ?")).
		WithArgs(model.StatusMissed, uint64(9), "intruder", model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? AND user_id = ?")).
		WithArgs(uint64(9), "intruder").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.MarkMissed(context.Background(), 9, "intruder")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMissedConflictWhenTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDosageLogRepo(db)

	at := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dosage_logs SET status = ?")).
		WithArgs(model.StatusMissed, uint64(9), "u1", model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? AND user_id = ?")).
		WithArgs(uint64(9), "u1").
		WillReturnRows(logRow(9, "u1", 5, at, model.StatusTaken))

	_, err = repo.MarkMissed(context.Background(), 9, "u1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepMissedForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDosageLogRepo(db)

	cutoff := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dosage_logs SET status = ?")).
		WithArgs(model.StatusMissed, "u1", model.StatusPending, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.SweepMissedForUser(context.Background(), "u1", cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTodayByUserBoundsAndOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewDosageLogRepo(db)

	now := time.Date(2026, time.March, 14, 13, 37, 0, 0, time.UTC)
	start := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	rows := sqlmock.NewRows(logCols).
		AddRow(1, "u1", 5, "Iron", start.Add(8*time.Hour), model.StatusPending, nil, uint32(1), "MORNING", "", start, start).
		AddRow(2, "u1", 5, "Iron", start.Add(20*time.Hour), model.StatusPending, nil, uint32(1), "NIGHT", "", start, start)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND scheduled_at >= ? AND scheduled_at < ?")).
		WithArgs("u1", start, end).
		WillReturnRows(rows)

	logs, err := repo.ListTodayByUser(context.Background(), "u1", now)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].ScheduledAt.Before(logs[1].ScheduledAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
