package models

import "time"

// ReportFilter selects reports. Zero-valued fields add no predicate.
type ReportFilter struct {
	Village  string
	Symptoms string
	// SymptomsContainsAnyOf matches reports whose symptoms contain any of the
	// substrings, ignoring case.
	SymptomsContainsAnyOf []string
	CreatedAfter          time.Time
	Limit                 int
}

// SensorFilter selects sensor readings. When both PHBelow and TurbidityAbove are set
// they combine with OR.
type SensorFilter struct {
	CreatedAfter   time.Time
	PHBelow        *float64
	TurbidityAbove *float64
}

// AlertFilter selects alerts, newest first.
type AlertFilter struct {
	Village            string
	DiseaseOrParameter string
	Auto               *bool
	CreatedAfter       time.Time
	TargetRolesOverlap []Role
	Limit              int
}

// ProfileFilter selects profiles by role.
type ProfileFilter struct {
	Role  Role
	Limit int
}

// ReportSubmission is an incoming report from a form, an offline queue or an SMS.
type ReportSubmission struct {
	PatientName  string    `json:"patient_name"`
	Age          int       `json:"age,omitempty"`
	Village      string    `json:"village"`
	Symptoms     string    `json:"symptoms"`
	WaterSource  string    `json:"water_source,omitempty"`
	SubmittedVia Channel   `json:"submitted_via,omitempty"`
	SubmitterID  string    `json:"asha_id"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// SensorSubmission is an incoming water-quality sample.
type SensorSubmission struct {
	Village   string    `json:"village"`
	PH        float64   `json:"ph"`
	Turbidity float64   `json:"turbidity"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// SyncResult summarises an offline batch sync.
type SyncResult struct {
	Synced int      `json:"synced"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// AlertQuery is a caller-facing alert listing request.
type AlertQuery struct {
	Role    Role
	Village string
	Limit   int
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
