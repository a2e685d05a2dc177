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

// MedicineHandler bundles the dependencies for the medicine registry
// endpoints.  All methods assume JWT authentication has already run; the
// caller's user id always comes from the token, never from the request
// body.
type MedicineHandler struct {
	Medicines *repository.MedicineRepo
	Cache     *redis.Client      // nil disables cache invalidation
	CacheCfg  config.CacheConfig // prefix for invalidation keys
}

// NewMedicineHandler constructs a MedicineHandler.
func NewMedicineHandler(medicines *repository.MedicineRepo, cache *redis.Client, cacheCfg config.CacheConfig) *MedicineHandler {
	if medicines == nil {
		panic("nil repository passed to NewMedicineHandler")
	}
	return &MedicineHandler{Medicines: medicines, Cache: cache, CacheCfg: cacheCfg}
}

// ----- DTOs -----

type slotReq struct {
	Slot     string `json:"slot"`
	DoseTime string `json:"doseTime"`
}

type createMedicineReq struct {
	Name           string    `json:"name"`
	TabletsPerDose uint32    `json:"tabletsPerDose"`
	TotalTablets   uint32    `json:"totalTablets"`
	FoodTiming     string    `json:"foodTiming"`
	ImageURL       *string   `json:"imageUrl"`
	Slots          []slotReq `json:"slots"`
}

type takeDoseResp struct {
	Medicine      *model.Medicine `json:"medicine"`
	RemainingDays int             `json:"remainingDays"`
}

// List handles GET /api/medicines.  It returns all of the caller's
// medicines with their slot schedules, newest first.
func (h *MedicineHandler) List(c echo.Context) error {
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
	return c.JSON(http.StatusOK, meds)
}

// Create handles POST /api/medicines.  Any user id in the payload is
// ignored; ownership is always the bearer of the token.
func (h *MedicineHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createMedicineReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.TabletsPerDose == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tabletsPerDose must be at least 1"})
	}

	slots := make([]model.MedicineSlot, 0, len(req.Slots))
	seen := make(map[model.Slot]struct{})
	for _, s := range req.Slots {
		slot := model.Slot(strings.ToUpper(strings.TrimSpace(s.Slot)))
		if !model.ValidSlot(slot) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown slot: " + s.Slot})
		}
		if _, dup := seen[slot]; dup {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate slot: " + s.Slot})
		}
		if _, err := time.Parse("15:04", s.DoseTime); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid doseTime for slot " + s.Slot})
		}
		seen[slot] = struct{}{}
		slots = append(slots, model.MedicineSlot{Slot: slot, DoseTime: s.DoseTime})
	}

	m := &model.Medicine{
		UserID:         userID,
		Name:           req.Name,
		TabletsPerDose: req.TabletsPerDose,
		TotalTablets:   req.TotalTablets,
		FoodTiming:     strings.TrimSpace(req.FoodTiming),
		ImageURL:       req.ImageURL,
		Slots:          slots,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Medicines.Create(ctx, m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.invalidate(userID)
	return c.JSON(http.StatusCreated, m)
}

// Delete handles DELETE /api/medicines/:id.  Historical dosage logs are
// left in place; only the medicine and its schedule rows go away.
func (h *MedicineHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	medicineID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || medicineID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid medicine id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Medicines.DeleteByIDForUser(ctx, medicineID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "medicine not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.invalidate(userID)
	return c.NoContent(http.StatusNoContent)
}

// TakeDose handles POST /api/medicines/:id/take-dose, the shortcut that
// bumps the consumed-tablet counter without touching a dosage log.  The
// response includes the remaining-days estimate for the package.
func (h *MedicineHandler) TakeDose(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	medicineID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || medicineID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid medicine id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Medicines.ConsumeDose(ctx, medicineID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "medicine not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.invalidate(userID)

	// Best-effort event; a broker outage must not fail the request.
	ev := queue.DoseTakenEvent{
		UserID:          m.UserID,
		MedicineID:      m.ID,
		MedicineName:    m.Name,
		TabletsPerDose:  m.TabletsPerDose,
		ConsumedTablets: m.ConsumedTablets,
		TakenAt:         time.Now().UTC().Format(time.RFC3339),
	}
	go func() { _ = queue_publisher.PublishDoseTaken(context.Background(), ev) }()

	return c.JSON(http.StatusOK, takeDoseResp{
		Medicine:      m,
		RemainingDays: schedule.RemainingDays(m.TotalTablets, m.ConsumedTablets, m.TabletsPerDose, len(m.Slots)),
	})
}

// invalidate drops the caller's cached dashboard responses after a
// mutation so the next poll sees fresh data.
func (h *MedicineHandler) invalidate(userID string) {
	if h.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	middleware.InvalidateUser(ctx, h.Cache, h.CacheCfg.Prefix, userID)
}
