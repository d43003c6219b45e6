package models

import "time"

// RiskLevel grades a village by recent case volume.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// VillageHotspot aggregates recent reports for one village.
type VillageHotspot struct {
	Village           string    `json:"village"`
	CaseCount         int       `json:"case_count"`
	MostCommonSymptom string    `json:"most_common_symptom"`
	RiskLevel         RiskLevel `json:"risk_level"`
	LastReportAt      time.Time `json:"last_report_at"`
}
