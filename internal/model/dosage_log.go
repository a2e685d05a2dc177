package model

import "time"

// Log statuses.  PENDING is the only non-terminal state: a log moves to
// TAKEN when the user records the dose, or to MISSED by user action or
// the stale-log sweep.  No transition leaves TAKEN or MISSED.
const (
	StatusPending = "PENDING"
	StatusTaken   = "TAKEN"
	StatusMissed  = "MISSED"
)

// DosageLog is one concrete, dated instance of a scheduled dose.  Name and
// tablets-per-dose are snapshots taken at creation time so the log stays
// meaningful after the medicine is edited or deleted.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – opaque subject of the owning user.
//  MedicineID     – referenced medicine; may be stale after deletion.
//  MedicineName   – medicine name snapshot at creation time.
//  ScheduledAt    – intended dose timestamp (date + slot time, UTC).
//  Status         – PENDING, TAKEN or MISSED.
//  TakenAt        – when the dose was marked taken, nil otherwise.
//  TabletsPerDose – dose size snapshot at creation time.
//  Slot           – schedule position this log was generated from.
//  Note           – optional free-text note.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type DosageLog struct {
	ID             uint64     `json:"id"`             // dosage_logs.id
	UserID         string     `json:"userId"`         // dosage_logs.user_id
	MedicineID     uint64     `json:"medicineId"`     // dosage_logs.medicine_id
	MedicineName   string     `json:"medicineName"`   // dosage_logs.medicine_name
	ScheduledAt    time.Time  `json:"scheduledAt"`    // dosage_logs.scheduled_at
	Status         string     `json:"status"`         // dosage_logs.status
	TakenAt        *time.Time `json:"takenAt"`        // dosage_logs.taken_at (nullable)
	TabletsPerDose uint32     `json:"tabletsPerDose"` // dosage_logs.tablets_per_dose
	Slot           Slot       `json:"slot"`           // dosage_logs.slot
	Note           string     `json:"note"`           // dosage_logs.note
	CreatedAt      time.Time  `json:"createdAt"`      // dosage_logs.created_at
	UpdatedAt      time.Time  `json:"updatedAt"`      // dosage_logs.updated_at
}
