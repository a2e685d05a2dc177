package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/shecares/shecares-backend/internal/config"
	"github.com/shecares/shecares-backend/internal/middleware"
	"github.com/shecares/shecares-backend/internal/model"
	"github.com/shecares/shecares-backend/internal/queue"
	"github.com/shecares/shecares-backend/internal/repository"
	"github.com/shecares/shecares-backend/internal/schedule"
	queue_publisher "github.com/shecares/shecares-backend/internal/service"
)

// missedAfter is how long a pending log may sit past its scheduled time
// before the bulk sweep flips it to missed.
const missedAfter = 2 * time.Hour

// DosageLogHandler groups the repositories behind the dosage-log
// lifecycle: on-demand generation, take/miss transitions and the stale-log
// sweep.  Marking a dose taken updates both the log and the medicine's
// consumed counter inside one transaction.
type DosageLogHandler struct {
	Logs      *repository.DosageLogRepo
	Medicines *repository.MedicineRepo
	Cache     *redis.Client
	CacheCfg  config.CacheConfig
	now       func() time.Time // injectable clock, defaults to time.Now
}

// NewDosageLogHandler constructs a DosageLogHandler.
func NewDosageLogHandler(logs *repository.DosageLogRepo, medicines *repository.MedicineRepo, cache *redis.Client, cacheCfg config.CacheConfig) *DosageLogHandler {
	if logs == nil || medicines == nil {
		panic("nil repository passed to NewDosageLogHandler")
	}
	return &DosageLogHandler{Logs: logs, Medicines: medicines, Cache: cache, CacheCfg: cacheCfg, now: time.Now}
}

// ----- DTOs -----

type createLogReq struct {
	MedicineID uint64 `json:"medicineId"`
	Slot       string `json:"slot"`
	Date       string `json:"date"` // "YYYY-MM-DD", defaults to today
	Note       string `json:"note"`
}

type generateResp struct {
	Created int               `json:"created"`
	Logs    []model.DosageLog `json:"logs"`
}

type sweepResp struct {
	Missed int64 `json:"missed"`
}

// Today handles GET /api/dosage-logs/today: the caller's logs for the
// current UTC day, ascending by scheduled time.
func (h *DosageLogHandler) Today(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	logs, err := h.Logs.ListTodayByUser(ctx, userID, h.now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, logs)
}

// TodaySummary handles GET /api/dosage-logs/today/summary.  It returns
// today's logs pre-bucketed into the dashboard categories so thin clients
// need not re-derive them.
func (h *DosageLogHandler) TodaySummary(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	now := h.now()
	logs, err := h.Logs.ListTodayByUser(ctx, userID, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, schedule.Bucketize(logs, now))
}

// GenerateToday handles POST /api/dosage-logs/generate-today.  For every
// (medicine, slot) pair of the caller with a configured time it writes a
// pending log at today's date and that time.  The unique key on
// (user, medicine, scheduled time) makes repeated generation idempotent;
// only rows actually inserted are reported back.
func (h *DosageLogHandler) GenerateToday(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	meds, err := h.Medicines.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	planned := schedule.ExpandDay(meds, h.now())
	toCreate := make([]model.DosageLog, 0, len(planned))
	for _, p := range planned {
		toCreate = append(toCreate, model.DosageLog{
			UserID:         userID,
			MedicineID:     p.Medicine.ID,
			MedicineName:   p.Medicine.Name,
			ScheduledAt:    p.ScheduledAt,
			TabletsPerDose: p.Medicine.TabletsPerDose,
			Slot:           p.Slot,
		})
	}

	created, err := h.Logs.CreateBatch(ctx, toCreate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(created) > 0 {
		h.invalidate(userID)
	}
	return c.JSON(http.StatusCreated, generateResp{Created: len(created), Logs: created})
}

// Create handles POST /api/dosage-logs: fetch-or-create a single log for
// one medicine slot on a given date (default today).  The slot must be
// configured on the medicine; its time determines the log's timestamp.
func (h *DosageLogHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createLogReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.MedicineID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "medicineId is required"})
	}
	slot := model.Slot(strings.ToUpper(strings.TrimSpace(req.Slot)))
	if !model.ValidSlot(slot) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown slot: " + req.Slot})
	}
	day := h.now()
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
		}
		day = d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Medicines.GetByIDForUser(ctx, req.MedicineID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "medicine not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	var doseTime string
	for _, s := range m.Slots {
		if s.Slot == slot {
			doseTime = s.DoseTime
			break
		}
	}
	if doseTime == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot has no configured time"})
	}
	scheduledAt, err := schedule.SlotTimestamp(day, doseTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot has no configured time"})
	}

	l := &model.DosageLog{
		UserID:         userID,
		MedicineID:     m.ID,
		MedicineName:   m.Name,
		ScheduledAt:    scheduledAt,
		TabletsPerDose: m.TabletsPerDose,
		Slot:           slot,
		Note:           strings.TrimSpace(req.Note),
	}
	got, created, err := h.Logs.FetchOrCreate(ctx, l)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.invalidate(userID)
	}
	return c.JSON(status, got)
}

// Take handles PATCH /api/dosage-logs/:id/take.  The log transition and
// the medicine counter increment commit or roll back together; a deleted
// medicine simply means the counter update touches no rows.
func (h *DosageLogHandler) Take(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	logID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || logID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid log id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tx, err := h.Logs.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	l, err := h.Logs.GetForUpdateTx(ctx, tx, logID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "log not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Logs.MarkTakenTx(ctx, tx, l, h.now()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "log already " + strings.ToLower(l.Status)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Medicines.IncrementConsumedTx(ctx, tx, l.MedicineID, l.TabletsPerDose); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed = true
	h.invalidate(userID)

	ev := queue.DoseTakenEvent{
		LogID:          l.ID,
		UserID:         l.UserID,
		MedicineID:     l.MedicineID,
		MedicineName:   l.MedicineName,
		Slot:           string(l.Slot),
		TabletsPerDose: l.TabletsPerDose,
		ScheduledAt:    l.ScheduledAt.UTC().Format(time.RFC3339),
		TakenAt:        l.TakenAt.UTC().Format(time.RFC3339),
	}
	go func() { _ = queue_publisher.PublishDoseTaken(context.Background(), ev) }()

	return c.JSON(http.StatusOK, l)
}

// Miss handles PATCH /api/dosage-logs/:id/miss.  No side effect on the
// medicine record.
func (h *DosageLogHandler) Miss(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	logID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || logID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid log id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	l, err := h.Logs.MarkMissed(ctx, logID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "log not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "log already taken"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	h.invalidate(userID)
	return c.JSON(http.StatusOK, l)
}

// BulkMiss handles PATCH /api/dosage-logs/bulk-miss: every pending log of
// the caller scheduled two hours or more in the past becomes missed.
func (h *DosageLogHandler) BulkMiss(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cutoff := h.now().Add(-missedAfter)
	n, err := h.Logs.SweepMissedForUser(ctx, userID, cutoff)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if n > 0 {
		h.invalidate(userID)
	}
	return c.JSON(http.StatusOK, sweepResp{Missed: n})
}

func (h *DosageLogHandler) invalidate(userID string) {
	if h.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	middleware.InvalidateUser(ctx, h.Cache, h.CacheCfg.Prefix, userID)
}
