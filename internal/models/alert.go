package models

import "time"

// Role enumerates user roles; alerts target a set of them.
type Role string

const (
	RoleASHA      Role = "asha"
	RoleOfficial  Role = "official"
	RoleCommunity Role = "community"
	RoleVillager  Role = "villager"
)

// ParseRole validates a role name.
func ParseRole(value string) (Role, bool) {
	switch r := Role(value); r {
	case RoleASHA, RoleOfficial, RoleCommunity, RoleVillager:
		return r, true
	default:
		return "", false
	}
}

// AlertType classifies automatically generated alerts.
type AlertType string

const (
	AlertTypeDiseaseCluster AlertType = "disease_cluster"
	AlertTypeWaterQuality   AlertType = "water_quality"
	AlertTypeSeasonal       AlertType = "seasonal"
)

// Alert is a message addressed to one or more roles. Automatic alerts always carry
// Type, Village and DiseaseOrParameter.
type Alert struct {
	ID                 string    `json:"id"`
	Message            string    `json:"message"`
	TargetRoles        []Role    `json:"target_roles"`
	CreatedBy          string    `json:"created_by"`
	Village            string    `json:"village,omitempty"`
	Type               AlertType `json:"type,omitempty"`
	DiseaseOrParameter string    `json:"disease_or_parameter,omitempty"`
	Value              *float64  `json:"value,omitempty"`
	Auto               bool      `json:"auto"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Targets reports whether the alert is addressed to the role.
func (a Alert) Targets(role Role) bool {
	for _, r := range a.TargetRoles {
		if r == role {
			return true
		}
	}
	return false
}

// AlertInsert holds the fields supplied when persisting a new alert. The store assigns
// ID and timestamps.
type AlertInsert struct {
	Message            string    `json:"message"`
	TargetRoles        []Role    `json:"target_roles"`
	CreatedBy          string    `json:"created_by"`
	Village            string    `json:"village,omitempty"`
	Type               AlertType `json:"type,omitempty"`
	DiseaseOrParameter string    `json:"disease_or_parameter,omitempty"`
	Value              *float64  `json:"value,omitempty"`
	Auto               bool      `json:"auto"`
}
