package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shecares/shecares-backend/internal/model"
)

// DosageLogRepo provides persistence for dosage logs.  The dosage_logs
// table carries a unique key on (user_id, medicine_id, scheduled_at), so
// creation uses INSERT IGNORE and duplicate expansions of the same slot
// are rejected by the engine rather than by a racy existence check.  All
// timestamps are stored in UTC.
type DosageLogRepo struct {
	db *sql.DB
}

// NewDosageLogRepo returns a new DosageLogRepo bound to the given database.
func NewDosageLogRepo(db *sql.DB) *DosageLogRepo { return &DosageLogRepo{db: db} }

// DB exposes the underlying handle for transactions spanning repositories.
func (r *DosageLogRepo) DB() *sql.DB { return r.db }

const logColumns = `id, user_id, medicine_id, medicine_name, scheduled_at, status,
	taken_at, tablets_per_dose, slot, note, created_at, updated_at`

// scanLog reads one dosage log from a row scanner.
func scanLog(row interface {
	Scan(dest ...interface{}) error
}) (*model.DosageLog, error) {
	var l model.DosageLog
	var takenAt sql.NullTime
	var slot string
	if err := row.Scan(
		&l.ID, &l.UserID, &l.MedicineID, &l.MedicineName, &l.ScheduledAt, &l.Status,
		&takenAt, &l.TabletsPerDose, &slot, &l.Note, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if takenAt.Valid {
		t := takenAt.Time
		l.TakenAt = &t
	}
	l.Slot = model.Slot(slot)
	return &l, nil
}

// CreateBatch inserts the given pending logs inside one transaction using
// INSERT IGNORE, so rows whose (user, medicine, scheduled time) already
// exist are skipped silently.  It returns only the logs actually created,
// with IDs and timestamps populated.
func (r *DosageLogRepo) CreateBatch(ctx context.Context, logs []model.DosageLog) ([]model.DosageLog, error) {
	created := make([]model.DosageLog, 0, len(logs))
	if len(logs) == 0 {
		return created, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT IGNORE INTO dosage_logs
		(user_id, medicine_id, medicine_name, scheduled_at, status, tablets_per_dose, slot, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, l := range logs {
		result, err := tx.ExecContext(ctx, q,
			l.UserID, l.MedicineID, l.MedicineName, l.ScheduledAt.UTC(),
			model.StatusPending, l.TabletsPerDose, string(l.Slot), l.Note)
		if err != nil {
			return nil, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue // duplicate slot, already generated
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}
		row := tx.QueryRowContext(ctx, `SELECT `+logColumns+` FROM dosage_logs WHERE id = ?`, id)
		got, err := scanLog(row)
		if err != nil {
			return nil, err
		}
		created = append(created, *got)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return created, nil
}

// FetchOrCreate inserts a single pending log, or returns the existing one
// when the (user, medicine, scheduled time) tuple is already present.  The
// boolean reports whether a new row was created.
func (r *DosageLogRepo) FetchOrCreate(ctx context.Context, l *model.DosageLog) (*model.DosageLog, bool, error) {
	const q = `INSERT IGNORE INTO dosage_logs
		(user_id, medicine_id, medicine_name, scheduled_at, status, tablets_per_dose, slot, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		l.UserID, l.MedicineID, l.MedicineName, l.ScheduledAt.UTC(),
		model.StatusPending, l.TabletsPerDose, string(l.Slot), l.Note)
	if err != nil {
		return nil, false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	const sel = `SELECT ` + logColumns + ` FROM dosage_logs
		WHERE user_id = ? AND medicine_id = ? AND scheduled_at = ?`
	row := r.db.QueryRowContext(ctx, sel, l.UserID, l.MedicineID, l.ScheduledAt.UTC())
	got, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}
	return got, n > 0, nil
}

// ListTodayByUser returns the user's logs scheduled on the calendar day of
// now (UTC), sorted by scheduled time ascending.
func (r *DosageLogRepo) ListTodayByUser(ctx context.Context, userID string, now time.Time) ([]model.DosageLog, error) {
	day := now.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	const q = `SELECT ` + logColumns + ` FROM dosage_logs
		WHERE user_id = ? AND scheduled_at >= ? AND scheduled_at < ?
		ORDER BY scheduled_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]model.DosageLog, 0)
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetForUpdateTx loads a log by ID scoped to the user, locking the row for
// the remainder of the transaction.  ErrNotFound covers both absence and
// foreign ownership.
func (r *DosageLogRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, logID uint64, userID string) (*model.DosageLog, error) {
	const q = `SELECT ` + logColumns + ` FROM dosage_logs
		WHERE id = ? AND user_id = ? FOR UPDATE`
	row := tx.QueryRowContext(ctx, q, logID, userID)
	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// MarkTakenTx transitions a pending log to TAKEN inside an existing
// transaction and stamps taken_at.  ErrConflict is returned when the log
// is already terminal.
func (r *DosageLogRepo) MarkTakenTx(ctx context.Context, tx *sql.Tx, l *model.DosageLog, now time.Time) error {
	if l.Status != model.StatusPending {
		return ErrConflict
	}
	takenAt := now.UTC()
	const q = `UPDATE dosage_logs SET status = ?, taken_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, model.StatusTaken, takenAt, l.ID); err != nil {
		return err
	}
	l.Status = model.StatusTaken
	l.TakenAt = &takenAt
	return nil
}

// MarkMissed transitions a pending log to MISSED.  It distinguishes a
// missing or foreign log (ErrNotFound) from one already terminal
// (ErrConflict).
func (r *DosageLogRepo) MarkMissed(ctx context.Context, logID uint64, userID string) (*model.DosageLog, error) {
	const q = `UPDATE dosage_logs SET status = ?
		WHERE id = ? AND user_id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, model.StatusMissed, logID, userID, model.StatusPending)
	if err != nil {
		return nil, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM dosage_logs WHERE id = ? AND user_id = ?`, logID, userID)
	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if n == 0 && l.Status != model.StatusMissed {
		return nil, ErrConflict
	}
	return l, nil
}

// SweepMissedForUser flips all of one user's pending logs scheduled at or
// before the cutoff to MISSED in a single update and returns the number
// affected.
func (r *DosageLogRepo) SweepMissedForUser(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	const q = `UPDATE dosage_logs SET status = ?
		WHERE user_id = ? AND status = ? AND scheduled_at <= ?`
	result, err := r.db.ExecContext(ctx, q, model.StatusMissed, userID, model.StatusPending, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SweepMissedAll is the cross-user variant used by the background sweeper.
func (r *DosageLogRepo) SweepMissedAll(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `UPDATE dosage_logs SET status = ?
		WHERE status = ? AND scheduled_at <= ?`
	result, err := r.db.ExecContext(ctx, q, model.StatusMissed, model.StatusPending, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
