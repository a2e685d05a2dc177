// Package queue defines message payloads exchanged over the message broker.
package queue

// DoseTakenEvent is published when a user records a dose as taken, either
// via a dosage-log transition or the direct take-dose shortcut.  It carries
// enough for downstream consumers (adherence analytics, caregiver
// notifications) without querying the primary database.
type DoseTakenEvent struct {
	LogID           uint64 `json:"log_id,omitempty"`
	UserID          string `json:"user_id"`
	MedicineID      uint64 `json:"medicine_id"`
	MedicineName    string `json:"medicine_name"`
	Slot            string `json:"slot,omitempty"`
	TabletsPerDose  uint32 `json:"tablets_per_dose"`
	ConsumedTablets uint32 `json:"consumed_tablets,omitempty"`
	ScheduledAt     string `json:"scheduled_at,omitempty"`
	TakenAt         string `json:"taken_at"`
}

// IncidentReportedEvent is published when an incident report is submitted
// so downstream responders can be alerted without polling the table.
type IncidentReportedEvent struct {
	IncidentID    uint64 `json:"incident_id"`
	IncidentType  string `json:"incident_type"`
	IncidentDate  string `json:"incident_date"`
	IncidentTime  string `json:"incident_time"`
	Location      string `json:"location"`
	ReporterName  string `json:"reporter_name"`
	ReporterPhone string `json:"reporter_phone"`
	ReportedAt    string `json:"reported_at"`
}
