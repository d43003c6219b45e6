package models

import "time"

// Channel records how a report reached the system.
type Channel string

const (
	ChannelOnline          Channel = "online"
	ChannelOnlineVillager  Channel = "online_villager"
	ChannelOfflineVillager Channel = "offline_villager"
	ChannelSMS             Channel = "SMS"
	ChannelSMSVillager     Channel = "SMS_villager"
)

// Valid reports whether the channel is one of the known submission paths.
func (c Channel) Valid() bool {
	switch c {
	case ChannelOnline, ChannelOnlineVillager, ChannelOfflineVillager, ChannelSMS, ChannelSMSVillager:
		return true
	default:
		return false
	}
}

// Villager reports whether the submission came from a villager rather than an ASHA worker.
func (c Channel) Villager() bool {
	return c == ChannelOnlineVillager || c == ChannelOfflineVillager || c == ChannelSMSVillager
}

// Report is a single patient symptom report. Reports are immutable once stored.
type Report struct {
	ID           string    `json:"id"`
	PatientName  string    `json:"patient_name"`
	Village      string    `json:"village"`
	Symptoms     string    `json:"symptoms"`
	WaterSource  string    `json:"water_source"`
	SubmittedVia Channel   `json:"submitted_via"`
	SubmitterID  string    `json:"asha_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Trigger returns the detection trigger derived from the report.
func (r Report) Trigger() *ReportTrigger {
	return &ReportTrigger{Village: r.Village, Symptoms: r.Symptoms}
}

// ReportTrigger carries the village and symptom label of the report that started a detection run.
type ReportTrigger struct {
	Village  string `json:"village"`
	Symptoms string `json:"symptoms"`
}
