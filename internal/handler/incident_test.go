package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shecares/shecares-backend/internal/model"
	"github.com/shecares/shecares-backend/internal/repository"
)

func newIncidentHandler(t *testing.T) (*IncidentHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewIncidentHandler(repository.NewIncidentRepo(db)), mock
}

func TestSubmitIncident(t *testing.T) {
	h, mock := newIncidentHandler(t)
	created := time.Date(2026, time.March, 14, 21, 5, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO incidents")).
		WithArgs("harassment", "2026-03-14", "20:45", "5th Ave", "details here", "Asha", "+15550100").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM incidents WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	c, rec := postCtx("", "/api/submit-form",
		`{"incidentType":"harassment","incidentDate":"2026-03-14","incidentTime":"20:45",`+
			`"location":"5th Ave","description":"details here","reporterName":"Asha","reporterPhone":"+15550100"}`)
	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got model.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(3), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitIncidentRequiresTypeAndDescription(t *testing.T) {
	h, _ := newIncidentHandler(t)
	c, rec := postCtx("", "/api/submit-form", `{"incidentType":"  ","description":""}`)
	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitIncidentRejectsBadDate(t *testing.T) {
	h, _ := newIncidentHandler(t)
	c, rec := postCtx("", "/api/submit-form",
		`{"incidentType":"theft","description":"x","incidentDate":"14-03-2026"}`)
	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
