package model

import "time"

// Incident is a flat, immutable report submitted through the public
// incident form.  Records are write-once; there is no lifecycle beyond
// creation.
//
// Fields:
//  ID            – primary key identifier.
//  IncidentType  – category chosen by the reporter.
//  IncidentDate  – date of the incident as "YYYY-MM-DD".
//  IncidentTime  – time of the incident as "HH:MM".
//  Location      – free-text location description.
//  Description   – what happened.
//  ReporterName  – name supplied by the reporter.
//  ReporterPhone – contact phone supplied by the reporter.
//  CreatedAt     – submission timestamp.
type Incident struct {
	ID            uint64    `json:"id"`            // incidents.id
	IncidentType  string    `json:"incidentType"`  // incidents.incident_type
	IncidentDate  string    `json:"incidentDate"`  // incidents.incident_date
	IncidentTime  string    `json:"incidentTime"`  // incidents.incident_time
	Location      string    `json:"location"`      // incidents.location
	Description   string    `json:"description"`   // incidents.description
	ReporterName  string    `json:"reporterName"`  // incidents.reporter_name
	ReporterPhone string    `json:"reporterPhone"` // incidents.reporter_phone
	CreatedAt     time.Time `json:"createdAt"`     // incidents.created_at
}
