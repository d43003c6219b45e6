package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jalrakshak/outbreak-engine/internal/engine"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/sms"
)

// SyncRequest carries a batch of queued offline reports.
type SyncRequest struct {
	Reports []models.ReportSubmission `json:"reports"`
}

// SMSRequest carries a raw SMS body received by the gateway.
type SMSRequest struct {
	Body    string `json:"body"`
	ASHAID  string `json:"asha_id"`
	ViaASHA bool   `json:"via_asha"`
}

// DetectionRequest names the report that should drive a detection run. An empty
// request sweeps water quality only.
type DetectionRequest struct {
	Village  string `json:"village,omitempty"`
	Symptoms string `json:"symptoms,omitempty"`
}

func (r DetectionRequest) trigger() *models.ReportTrigger {
	if r.Village == "" && r.Symptoms == "" {
		return nil
	}
	return &models.ReportTrigger{Village: r.Village, Symptoms: r.Symptoms}
}

// AlertsRequest filters the alert listing.
type AlertsRequest struct {
	Role    string `json:"role"`
	Village string `json:"village,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func (r AlertsRequest) query() models.AlertQuery {
	return models.AlertQuery{Role: models.Role(r.Role), Village: r.Village, Limit: r.Limit}
}

// AlertsResponse wraps an alert listing.
type AlertsResponse struct {
	Alerts []models.Alert `json:"alerts"`
}

// HotspotsResponse wraps the hotspot table.
type HotspotsResponse struct {
	Hotspots []models.VillageHotspot `json:"hotspots"`
}

// RunSummary is the wire form of a detection run.
type RunSummary struct {
	StartedAt  time.Time         `json:"started_at"`
	Created    []models.Alert    `json:"created"`
	Suppressed int               `json:"suppressed"`
	Failed     int               `json:"failed"`
	RuleErrors map[string]string `json:"rule_errors,omitempty"`
}

func toRunSummary(s engine.RunSummary) RunSummary {
	out := RunSummary{
		StartedAt:  s.StartedAt,
		Created:    s.Created,
		Suppressed: s.Suppressed,
		Failed:     s.Failed,
	}
	if out.Created == nil {
		out.Created = []models.Alert{}
	}
	if len(s.RuleErrors) > 0 {
		out.RuleErrors = make(map[string]string, len(s.RuleErrors))
		for rule, err := range s.RuleErrors {
			out.RuleErrors[rule] = err.Error()
		}
	}
	return out
}

// ParsedSMS is the wire form of a parsed SMS report.
type ParsedSMS struct {
	PatientName string     `json:"patient_name"`
	Age         int        `json:"age,omitempty"`
	Village     string     `json:"village"`
	Symptoms    string     `json:"symptoms"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}

func toParsedSMS(m sms.Message) ParsedSMS {
	out := ParsedSMS{PatientName: m.PatientName, Age: m.Age, Village: m.Village, Symptoms: m.Symptoms}
	if !m.SentAt.IsZero() {
		sent := m.SentAt
		out.SentAt = &sent
	}
	return out
}

// RuleNames lists failed rules in a stable order.
func (s RunSummary) RuleNames() []string {
	names := make([]string, 0, len(s.RuleErrors))
	for name := range s.RuleErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeStruct maps a Struct onto a JSON-tagged Go value.
func DecodeStruct(in *structpb.Struct, out any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	return nil
}

// EncodeStruct maps a JSON-tagged Go value onto a Struct. v must encode as an object.
func EncodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("unmarshal struct: %w", err)
	}
	return out, nil
}
