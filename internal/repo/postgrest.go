package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

const (
	tableReports  = "reports"
	tableSensors  = "sensors"
	tableAlerts   = "alerts"
	tableProfiles = "profiles"
)

// PostgRESTOptions configures a PostgRESTStore.
type PostgRESTOptions struct {
	BaseURL string
	APIKey  string
	Schema  string
	Timeout time.Duration
}

// PostgRESTStore talks to a Supabase project through its REST interface.
type PostgRESTStore struct {
	baseURL    string
	apiKey     string
	schema     string
	httpClient *http.Client
}

// NewPostgRESTStore constructs a store targeting the configured project.
func NewPostgRESTStore(opts PostgRESTOptions) *PostgRESTStore {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgRESTStore{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		schema:  opts.Schema,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// QueryReports fetches reports newest first.
func (s *PostgRESTStore) QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	q := url.Values{}
	eq(q, "village", filter.Village)
	eq(q, "symptoms", filter.Symptoms)
	gte(q, "created_at", filter.CreatedAfter)
	if len(filter.SymptomsContainsAnyOf) > 0 {
		terms := make([]string, 0, len(filter.SymptomsContainsAnyOf))
		for _, kw := range filter.SymptomsContainsAnyOf {
			if kw == "" {
				continue
			}
			terms = append(terms, "symptoms.ilike."+quoteOperand("*"+likeEscaper.Replace(kw)+"*"))
		}
		if len(terms) > 0 {
			q.Set("or", "("+strings.Join(terms, ",")+")")
		}
	}
	newestFirst(q, filter.Limit)

	var rows []models.Report
	if err := s.get(ctx, tableReports, q, &rows); err != nil {
		return nil, utils.NewAppError("postgrest.query", tableReports, err)
	}
	return rows, nil
}

// QuerySensors fetches readings newest first.
func (s *PostgRESTStore) QuerySensors(ctx context.Context, filter models.SensorFilter) ([]models.SensorReading, error) {
	q := url.Values{}
	gte(q, "created_at", filter.CreatedAfter)
	switch {
	case filter.PHBelow != nil && filter.TurbidityAbove != nil:
		q.Set("or", fmt.Sprintf("(ph.lt.%s,turbidity.gt.%s)", formatFloat(*filter.PHBelow), formatFloat(*filter.TurbidityAbove)))
	case filter.PHBelow != nil:
		q.Set("ph", "lt."+formatFloat(*filter.PHBelow))
	case filter.TurbidityAbove != nil:
		q.Set("turbidity", "gt."+formatFloat(*filter.TurbidityAbove))
	}
	newestFirst(q, 0)

	var rows []models.SensorReading
	if err := s.get(ctx, tableSensors, q, &rows); err != nil {
		return nil, utils.NewAppError("postgrest.query", tableSensors, err)
	}
	return rows, nil
}

// QueryAlerts fetches alerts newest first.
func (s *PostgRESTStore) QueryAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	q := url.Values{}
	eq(q, "village", filter.Village)
	eq(q, "disease_or_parameter", filter.DiseaseOrParameter)
	if filter.Auto != nil {
		q.Set("auto", "is."+strconv.FormatBool(*filter.Auto))
	}
	gte(q, "created_at", filter.CreatedAfter)
	if len(filter.TargetRolesOverlap) > 0 {
		roles := make([]string, 0, len(filter.TargetRolesOverlap))
		for _, r := range filter.TargetRolesOverlap {
			roles = append(roles, string(r))
		}
		q.Set("target_roles", "ov.{"+strings.Join(roles, ",")+"}")
	}
	newestFirst(q, filter.Limit)

	var rows []models.Alert
	if err := s.get(ctx, tableAlerts, q, &rows); err != nil {
		return nil, utils.NewAppError("postgrest.query", tableAlerts, err)
	}
	return rows, nil
}

// QueryProfiles fetches profiles.
func (s *PostgRESTStore) QueryProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	q := url.Values{}
	eq(q, "role", string(filter.Role))
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var rows []models.Profile
	if err := s.get(ctx, tableProfiles, q, &rows); err != nil {
		return nil, utils.NewAppError("postgrest.query", tableProfiles, err)
	}
	return rows, nil
}

// InsertAlert creates an alert row and returns it as stored.
func (s *PostgRESTStore) InsertAlert(ctx context.Context, alert models.AlertInsert) (models.Alert, error) {
	var rows []models.Alert
	if err := s.post(ctx, tableAlerts, alert, &rows); err != nil {
		return models.Alert{}, utils.NewAppError("postgrest.insert", tableAlerts, err)
	}
	if len(rows) == 0 {
		return models.Alert{}, utils.NewAppError("postgrest.insert", tableAlerts, ErrNotFound)
	}
	return rows[0], nil
}

// InsertReport creates a report row.
func (s *PostgRESTStore) InsertReport(ctx context.Context, sub models.ReportSubmission) (models.Report, error) {
	payload := map[string]any{
		"patient_name":  sub.PatientName,
		"village":       sub.Village,
		"symptoms":      sub.Symptoms,
		"water_source":  sub.WaterSource,
		"submitted_via": sub.SubmittedVia,
		"asha_id":       sub.SubmitterID,
	}
	if !sub.CreatedAt.IsZero() {
		payload["created_at"] = sub.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	var rows []models.Report
	if err := s.post(ctx, tableReports, payload, &rows); err != nil {
		return models.Report{}, utils.NewAppError("postgrest.insert", tableReports, err)
	}
	if len(rows) == 0 {
		return models.Report{}, utils.NewAppError("postgrest.insert", tableReports, ErrNotFound)
	}
	return rows[0], nil
}

// InsertSensorReading creates a sensor row.
func (s *PostgRESTStore) InsertSensorReading(ctx context.Context, sub models.SensorSubmission) (models.SensorReading, error) {
	payload := map[string]any{
		"village":   sub.Village,
		"ph":        sub.PH,
		"turbidity": sub.Turbidity,
	}
	if !sub.CreatedAt.IsZero() {
		payload["created_at"] = sub.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	var rows []models.SensorReading
	if err := s.post(ctx, tableSensors, payload, &rows); err != nil {
		return models.SensorReading{}, utils.NewAppError("postgrest.insert", tableSensors, err)
	}
	if len(rows) == 0 {
		return models.SensorReading{}, utils.NewAppError("postgrest.insert", tableSensors, ErrNotFound)
	}
	return rows[0], nil
}

// InsertProfile creates a profile row.
func (s *PostgRESTStore) InsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	payload := map[string]any{
		"user_id": profile.UserID,
		"name":    profile.Name,
		"email":   profile.Email,
		"role":    profile.Role,
		"village": profile.Village,
	}

	var rows []models.Profile
	if err := s.post(ctx, tableProfiles, payload, &rows); err != nil {
		return models.Profile{}, utils.NewAppError("postgrest.insert", tableProfiles, err)
	}
	if len(rows) == 0 {
		return models.Profile{}, utils.NewAppError("postgrest.insert", tableProfiles, ErrNotFound)
	}
	return rows[0], nil
}

// Close releases idle connections.
func (s *PostgRESTStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *PostgRESTStore) tableURL(table string) string {
	if s.baseURL == "" {
		return ""
	}
	cleaned := "/rest/v1/" + table
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return s.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (s *PostgRESTStore) get(ctx context.Context, table string, query url.Values, out any) error {
	endpoint := s.tableURL(table)
	if endpoint == "" {
		return fmt.Errorf("postgrest base URL not configured")
	}
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	s.authorize(req)
	if s.schema != "" {
		req.Header.Set("Accept-Profile", s.schema)
	}
	return s.do(req, out)
}

func (s *PostgRESTStore) post(ctx context.Context, table string, payload any, out any) error {
	endpoint := s.tableURL(table)
	if endpoint == "" {
		return fmt.Errorf("postgrest base URL not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if s.schema != "" {
		req.Header.Set("Content-Profile", s.schema)
	}
	return s.do(req, out)
}

func (s *PostgRESTStore) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

func (s *PostgRESTStore) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("postgrest returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func eq(q url.Values, column, value string) {
	if value != "" {
		q.Set(column, "eq."+value)
	}
}

func gte(q url.Values, column string, t time.Time) {
	if !t.IsZero() {
		q.Set(column, "gte."+t.UTC().Format(time.RFC3339Nano))
	}
}

func newestFirst(q url.Values, limit int) {
	q.Set("order", "created_at.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}

// likeEscaper makes LIKE wildcards in a keyword match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var operandEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quoteOperand wraps a value in double quotes so commas and spaces survive inside or=(...).
func quoteOperand(v string) string {
	return `"` + operandEscaper.Replace(v) + `"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
