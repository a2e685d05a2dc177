package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shecares/shecares-backend/internal/config"
	"github.com/shecares/shecares-backend/internal/model"
	"github.com/shecares/shecares-backend/internal/repository"
)

var logCols = []string{
	"id", "user_id", "medicine_id", "medicine_name", "scheduled_at", "status",
	"taken_at", "tablets_per_dose", "slot", "note", "created_at", "updated_at",
}

func newLogHandler(t *testing.T) (*DosageLogHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewDosageLogHandler(
		repository.NewDosageLogRepo(db),
		repository.NewMedicineRepo(db),
		nil, config.CacheConfig{},
	)
	return h, mock
}

func patchCtx(userID, path, body string, names, values []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	if len(names) > 0 {
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if userID != "" {
		c.Set("user_id", userID)
	}
	return c, rec
}

func TestTakeMarksLogAndIncrementsCounter(t *testing.T) {
	h, mock := newLogHandler(t)
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	scheduled := now.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(uint64(9), "u1").
		WillReturnRows(sqlmock.NewRows(logCols).
			AddRow(9, "u1", 5, "Iron", scheduled, model.StatusPending, nil, uint32(2), "MORNING", "", scheduled, scheduled))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dosage_logs SET status = ?, taken_at = ?")).
		WithArgs(model.StatusTaken, now, uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE medicines")).
		WithArgs(uint32(2), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := patchCtx("u1", "/api/dosage-logs/:id/take", "", []string{"id"}, []string{"9"})
	require.NoError(t, h.Take(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got model.DosageLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.StatusTaken, got.Status)
	require.NotNil(t, got.TakenAt)
	assert.True(t, got.TakenAt.Equal(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTakeForeignLogIsNotFound(t *testing.T) {
	h, mock := newLogHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(uint64(9), "intruder").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := patchCtx("intruder", "/api/dosage-logs/:id/take", "", []string{"id"}, []string{"9"})
	require.NoError(t, h.Take(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTakeTerminalLogConflicts(t *testing.T) {
	h, mock := newLogHandler(t)
	scheduled := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)
	taken := scheduled.Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(uint64(9), "u1").
		WillReturnRows(sqlmock.NewRows(logCols).
			AddRow(9, "u1", 5, "Iron", scheduled, model.StatusTaken, taken, uint32(1), "MORNING", "", scheduled, taken))
	mock.ExpectRollback()

	c, rec := patchCtx("u1", "/api/dosage-logs/:id/take", "", []string{"id"}, []string{"9"})
	require.NoError(t, h.Take(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTakeUnauthenticated(t *testing.T) {
	h, _ := newLogHandler(t)
	c, rec := patchCtx("", "/api/dosage-logs/:id/take", "", []string{"id"}, []string{"9"})
	require.NoError(t, h.Take(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBulkMissUsesTwoHourCutoff(t *testing.T) {
	h, mock := newLogHandler(t)
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	mock.ExpectExec(regexp.QuoteMeta("UPDATE dosage_logs SET status = ?")).
		WithArgs(model.StatusMissed, "u1", model.StatusPending, now.Add(-2*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	c, rec := patchCtx("u1", "/api/dosage-logs/bulk-miss", "", nil, nil)
	require.NoError(t, h.BulkMiss(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp sweepResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Missed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTodayReturnsSortedLogs(t *testing.T) {
	h, mock := newLogHandler(t)
	now := time.Date(2026, time.March, 14, 13, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	start := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(logCols).
		AddRow(1, "u1", 5, "Iron", start.Add(8*time.Hour), model.StatusTaken, start.Add(8*time.Hour), uint32(1), "MORNING", "", start, start).
		AddRow(2, "u1", 5, "Iron", start.Add(20*time.Hour), model.StatusPending, nil, uint32(1), "NIGHT", "", start, start)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND scheduled_at >= ? AND scheduled_at < ?")).
		WithArgs("u1", start, start.Add(24*time.Hour)).
		WillReturnRows(rows)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/dosage-logs/today", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	require.NoError(t, h.Today(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var logs []model.DosageLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 2)
	assert.Equal(t, uint64(1), logs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateTodaySkipsSlotsAlreadyLogged(t *testing.T) {
	h, mock := newLogHandler(t)
	now := time.Date(2026, time.March, 14, 7, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	created := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	morning := time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)
	night := time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM medicines WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "name", "tablets_per_dose", "total_tablets", "consumed_tablets",
			"food_timing", "image_url", "created_at", "updated_at",
		}).AddRow(5, "u1", "Iron", uint32(1), uint32(40), uint32(10), "", nil, created, created))
	mock.ExpectQuery(regexp.QuoteMeta("FROM medicine_slots WHERE medicine_id IN")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"medicine_id", "slot", "dose_time", "position"}).
			AddRow(5, "MORNING", "08:00", uint32(0)).
			AddRow(5, "NIGHT", "20:00", uint32(1)))

	insertRe := regexp.QuoteMeta("INSERT IGNORE INTO dosage_logs")
	mock.ExpectBegin()
	// morning log already exists from an earlier generation run
	mock.ExpectExec(insertRe).
		WithArgs("u1", uint64(5), "Iron", morning, model.StatusPending, uint32(1), "MORNING", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertRe).
		WithArgs("u1", uint64(5), "Iron", night, model.StatusPending, uint32(1), "NIGHT", "").
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM dosage_logs WHERE id = ?")).
		WithArgs(int64(21)).
		WillReturnRows(sqlmock.NewRows(logCols).
			AddRow(21, "u1", 5, "Iron", night, model.StatusPending, nil, uint32(1), "NIGHT", "", now, now))
	mock.ExpectCommit()

	c, rec := postCtx("u1", "/api/dosage-logs/generate-today", "")
	require.NoError(t, h.GenerateToday(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp generateResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Created)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, model.SlotNight, resp.Logs[0].Slot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsUnknownSlot(t *testing.T) {
	h, mock := newLogHandler(t)
	c, rec := postCtx("u1", "/api/dosage-logs", `{"medicineId":5,"slot":"BRUNCH"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func postCtx(userID, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	if userID != "" {
		c.Set("user_id", userID)
	}
	return c, rec
}
