package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shecares/shecares-backend/internal/model"
)

// MedicineRepo provides CRUD operations for medicines and their schedule
// slots.  Slots live in the medicine_slots child table and are always
// loaded alongside the medicine.  All timestamps are stored in UTC.
type MedicineRepo struct {
	db *sql.DB
}

// NewMedicineRepo returns a new MedicineRepo bound to the given database.
func NewMedicineRepo(db *sql.DB) *MedicineRepo { return &MedicineRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span this repository and DosageLogRepo.
func (r *MedicineRepo) DB() *sql.DB { return r.db }

// Create inserts a medicine and its slot schedule in one transaction.  The
// generated ID and timestamps are populated on the passed model.  Slot
// positions follow the order of m.Slots.
func (r *MedicineRepo) Create(ctx context.Context, m *model.Medicine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO medicines
		(user_id, name, tablets_per_dose, total_tablets, consumed_tablets, food_timing, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		m.UserID, m.Name, m.TabletsPerDose, m.TotalTablets, m.ConsumedTablets, m.FoodTiming, m.ImageURL)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)

	if len(m.Slots) > 0 {
		query := `INSERT INTO medicine_slots (medicine_id, slot, dose_time, position) VALUES `
		args := make([]interface{}, 0, len(m.Slots)*4)
		for i, s := range m.Slots {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			m.Slots[i].Position = uint32(i)
			args = append(args, m.ID, string(s.Slot), s.DoseTime, uint32(i))
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	// Query back the row to populate timestamps and defaults.
	const sel = `SELECT created_at, updated_at FROM medicines WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, m.ID).Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByIDForUser returns a single medicine with its slots, restricted to
// the given user.  ErrNotFound is returned when the medicine is absent or
// belongs to someone else.
func (r *MedicineRepo) GetByIDForUser(ctx context.Context, medicineID uint64, userID string) (*model.Medicine, error) {
	const q = `SELECT id, user_id, name, tablets_per_dose, total_tablets, consumed_tablets,
	                  food_timing, image_url, created_at, updated_at
	           FROM medicines WHERE id = ? AND user_id = ?`
	var m model.Medicine
	var imageURL sql.NullString
	err := r.db.QueryRowContext(ctx, q, medicineID, userID).Scan(
		&m.ID, &m.UserID, &m.Name, &m.TabletsPerDose, &m.TotalTablets, &m.ConsumedTablets,
		&m.FoodTiming, &imageURL, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if imageURL.Valid {
		u := imageURL.String
		m.ImageURL = &u
	}
	slots, err := r.slotsFor(ctx, []uint64{m.ID})
	if err != nil {
		return nil, err
	}
	m.Slots = slots[m.ID]
	if m.Slots == nil {
		m.Slots = []model.MedicineSlot{}
	}
	return &m, nil
}

// ListByUser returns all medicines of a user, newest first, each with its
// slot schedule populated.  When the user has no medicines an empty slice
// is returned.
func (r *MedicineRepo) ListByUser(ctx context.Context, userID string) ([]model.Medicine, error) {
	const q = `SELECT id, user_id, name, tablets_per_dose, total_tablets, consumed_tablets,
	                  food_timing, image_url, created_at, updated_at
	           FROM medicines WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meds := make([]model.Medicine, 0)
	ids := make([]uint64, 0)
	for rows.Next() {
		var m model.Medicine
		var imageURL sql.NullString
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.Name, &m.TabletsPerDose, &m.TotalTablets, &m.ConsumedTablets,
			&m.FoodTiming, &imageURL, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if imageURL.Valid {
			u := imageURL.String
			m.ImageURL = &u
		}
		m.Slots = []model.MedicineSlot{}
		ids = append(ids, m.ID)
		meds = append(meds, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(meds) == 0 {
		return meds, nil
	}
	slots, err := r.slotsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range meds {
		if s, ok := slots[meds[i].ID]; ok {
			meds[i].Slots = s
		}
	}
	return meds, nil
}

// slotsFor loads the slot schedules for a set of medicines in one query,
// keyed by medicine ID and ordered by position.
func (r *MedicineRepo) slotsFor(ctx context.Context, medicineIDs []uint64) (map[uint64][]model.MedicineSlot, error) {
	if len(medicineIDs) == 0 {
		return map[uint64][]model.MedicineSlot{}, nil
	}
	query := `SELECT medicine_id, slot, dose_time, position FROM medicine_slots WHERE medicine_id IN (`
	args := make([]interface{}, 0, len(medicineIDs))
	for i, id := range medicineIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += `) ORDER BY medicine_id, position`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64][]model.MedicineSlot)
	for rows.Next() {
		var mid uint64
		var s model.MedicineSlot
		var slot string
		if err := rows.Scan(&mid, &slot, &s.DoseTime, &s.Position); err != nil {
			return nil, err
		}
		s.Slot = model.Slot(slot)
		out[mid] = append(out[mid], s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByIDForUser removes a medicine owned by the given user.  Slot rows
// go with it via the foreign key; historical dosage logs are deliberately
// left untouched.  ErrNotFound is returned when nothing was deleted.
func (r *MedicineRepo) DeleteByIDForUser(ctx context.Context, medicineID uint64, userID string) error {
	const q = `DELETE FROM medicines WHERE id = ? AND user_id = ?`
	result, err := r.db.ExecContext(ctx, q, medicineID, userID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeDose atomically increments a medicine's consumed-tablet counter
// by its own tablets-per-dose, clamped so the counter never exceeds the
// package total.  The updated medicine is returned.  ErrNotFound is
// returned when the medicine is absent or not owned by the user.
func (r *MedicineRepo) ConsumeDose(ctx context.Context, medicineID uint64, userID string) (*model.Medicine, error) {
	const q = `UPDATE medicines
	           SET consumed_tablets = LEAST(consumed_tablets + tablets_per_dose, total_tablets)
	           WHERE id = ? AND user_id = ?`
	result, err := r.db.ExecContext(ctx, q, medicineID, userID)
	if err != nil {
		return nil, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	// MySQL reports 0 affected rows when the clamp leaves the counter
	// unchanged, so absence must be checked via the follow-up read.
	_ = n
	m, err := r.GetByIDForUser(ctx, medicineID, userID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// IncrementConsumedTx clamp-increments consumed_tablets by the given dose
// inside an existing transaction.  A missing medicine row is not an
// error: the dosage-log transition that triggered the increment must
// survive medicine deletion.
func (r *MedicineRepo) IncrementConsumedTx(ctx context.Context, tx *sql.Tx, medicineID uint64, dose uint32) error {
	const q = `UPDATE medicines
	           SET consumed_tablets = LEAST(consumed_tablets + ?, total_tablets)
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, dose, medicineID)
	return err
}
