package repository

import (
	"context"
	"database/sql"

	"github.com/shecares/shecares-backend/internal/model"
)

// IncidentRepo persists incident reports.  Reports are write-once; the
// only read path lists recent submissions for operators.
type IncidentRepo struct {
	db *sql.DB
}

// NewIncidentRepo returns a new IncidentRepo bound to the given database.
func NewIncidentRepo(db *sql.DB) *IncidentRepo { return &IncidentRepo{db: db} }

// Create inserts an incident report and populates its generated ID and
// creation timestamp.
func (r *IncidentRepo) Create(ctx context.Context, in *model.Incident) error {
	const q = `INSERT INTO incidents
		(incident_type, incident_date, incident_time, location, description, reporter_name, reporter_phone)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		in.IncidentType, in.IncidentDate, in.IncidentTime, in.Location,
		in.Description, in.ReporterName, in.ReporterPhone)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	in.ID = uint64(id)
	const sel = `SELECT created_at FROM incidents WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, in.ID).Scan(&in.CreatedAt)
}

// ListRecent returns up to limit reports, newest first.
func (r *IncidentRepo) ListRecent(ctx context.Context, limit int) ([]model.Incident, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, incident_type, incident_date, incident_time, location,
	                  description, reporter_name, reporter_phone, created_at
	           FROM incidents ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Incident, 0)
	for rows.Next() {
		var in model.Incident
		if err := rows.Scan(
			&in.ID, &in.IncidentType, &in.IncidentDate, &in.IncidentTime, &in.Location,
			&in.Description, &in.ReporterName, &in.ReporterPhone, &in.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
