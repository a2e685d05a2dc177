package model

import "time"

// Slot is a named time-of-day position in a medicine's daily schedule.
// The set of slots is closed; schedules map each selected slot to a
// wall-clock "HH:MM" time string.
type Slot string

const (
	SlotMorning   Slot = "MORNING"
	SlotAfternoon Slot = "AFTERNOON"
	SlotEvening   Slot = "EVENING"
	SlotNight     Slot = "NIGHT"
)

// Slots lists every valid slot in canonical display order.  Schedule
// positions not present here are rejected at the API boundary.
var Slots = []Slot{SlotMorning, SlotAfternoon, SlotEvening, SlotNight}

// ValidSlot reports whether s is one of the closed slot enumeration.
func ValidSlot(s Slot) bool {
	for _, v := range Slots {
		if v == s {
			return true
		}
	}
	return false
}

// Medicine is a user's registered medication together with its daily
// schedule and running consumption counters.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – opaque subject of the owning user (external IdP).
//  Name            – display name of the medicine.
//  TabletsPerDose  – tablets consumed per scheduled dose.
//  TotalTablets    – tablets in the package when registered.
//  ConsumedTablets – running counter, never exceeds TotalTablets.
//  FoodTiming      – free-text note such as "after food".
//  ImageURL        – optional reference to a package photo.
//  Slots           – ordered schedule entries for this medicine.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Medicine struct {
	ID              uint64         `json:"id"`               // medicines.id
	UserID          string         `json:"userId"`           // medicines.user_id
	Name            string         `json:"name"`             // medicines.name
	TabletsPerDose  uint32         `json:"tabletsPerDose"`   // medicines.tablets_per_dose
	TotalTablets    uint32         `json:"totalTablets"`     // medicines.total_tablets
	ConsumedTablets uint32         `json:"consumedTablets"`  // medicines.consumed_tablets
	FoodTiming      string         `json:"foodTiming"`       // medicines.food_timing
	ImageURL        *string        `json:"imageUrl"`         // medicines.image_url (nullable)
	Slots           []MedicineSlot `json:"slots"`            // medicine_slots rows, ordered by position
	CreatedAt       time.Time      `json:"createdAt"`        // medicines.created_at
	UpdatedAt       time.Time      `json:"updatedAt"`        // medicines.updated_at
}

// MedicineSlot maps one slot of a medicine's schedule to its configured
// dose time.  A medicine has at most one entry per slot.
//
// Fields:
//  Slot     – schedule position (member of the closed enumeration).
//  DoseTime – wall-clock time as "HH:MM", 24-hour.
//  Position – ordering index within the medicine's schedule.
type MedicineSlot struct {
	Slot     Slot   `json:"slot"`     // medicine_slots.slot
	DoseTime string `json:"doseTime"` // medicine_slots.dose_time
	Position uint32 `json:"position"` // medicine_slots.position
}
