package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	patient_name TEXT NOT NULL,
	village TEXT NOT NULL,
	symptoms TEXT NOT NULL,
	water_source TEXT NOT NULL DEFAULT '',
	submitted_via TEXT NOT NULL DEFAULT '',
	asha_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_village_created ON reports(village, created_at);

CREATE TABLE IF NOT EXISTS sensors (
	id TEXT PRIMARY KEY,
	village TEXT NOT NULL,
	ph REAL NOT NULL,
	turbidity REAL NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sensors_created ON sensors(created_at);

CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	message TEXT NOT NULL,
	target_roles TEXT NOT NULL DEFAULT '[]',
	created_by TEXT NOT NULL,
	village TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	disease_or_parameter TEXT NOT NULL DEFAULT '',
	value REAL,
	auto INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_village_param ON alerts(village, disease_or_parameter, created_at);

CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	village TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
`

// SQLiteStore persists the collections in a local SQLite database. Timestamps are
// stored as unix nanoseconds and alert target roles as a JSON array.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// QueryReports returns matching reports, newest first.
func (s *SQLiteStore) QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	var w where
	w.eq("village", filter.Village)
	w.eq("symptoms", filter.Symptoms)
	w.since(filter.CreatedAfter)
	if len(filter.SymptomsContainsAnyOf) > 0 {
		terms := make([]string, 0, len(filter.SymptomsContainsAnyOf))
		for _, kw := range filter.SymptomsContainsAnyOf {
			terms = append(terms, "instr(lower(symptoms), ?) > 0")
			w.args = append(w.args, strings.ToLower(kw))
		}
		w.clauses = append(w.clauses, "("+strings.Join(terms, " OR ")+")")
	}

	query := "SELECT id, patient_name, village, symptoms, water_source, submitted_via, asha_id, created_at FROM reports" +
		w.sql() + " ORDER BY created_at DESC" + limitClause(filter.Limit)
	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, utils.NewAppError("sqlite.query", tableReports, err)
	}
	defer rows.Close()

	out := make([]models.Report, 0)
	for rows.Next() {
		var r models.Report
		var via string
		var created int64
		if err := rows.Scan(&r.ID, &r.PatientName, &r.Village, &r.Symptoms, &r.WaterSource, &via, &r.SubmitterID, &created); err != nil {
			return nil, utils.NewAppError("sqlite.scan", tableReports, err)
		}
		r.SubmittedVia = models.Channel(via)
		r.CreatedAt = fromNanos(created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError("sqlite.query", tableReports, err)
	}
	return out, nil
}

// QuerySensors returns matching readings, newest first.
func (s *SQLiteStore) QuerySensors(ctx context.Context, filter models.SensorFilter) ([]models.SensorReading, error) {
	var w where
	w.since(filter.CreatedAfter)
	switch {
	case filter.PHBelow != nil && filter.TurbidityAbove != nil:
		w.add("(ph < ? OR turbidity > ?)", *filter.PHBelow, *filter.TurbidityAbove)
	case filter.PHBelow != nil:
		w.add("ph < ?", *filter.PHBelow)
	case filter.TurbidityAbove != nil:
		w.add("turbidity > ?", *filter.TurbidityAbove)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, village, ph, turbidity, created_at FROM sensors"+w.sql()+" ORDER BY created_at DESC", w.args...)
	if err != nil {
		return nil, utils.NewAppError("sqlite.query", tableSensors, err)
	}
	defer rows.Close()

	out := make([]models.SensorReading, 0)
	for rows.Next() {
		var r models.SensorReading
		var created int64
		if err := rows.Scan(&r.ID, &r.Village, &r.PH, &r.Turbidity, &created); err != nil {
			return nil, utils.NewAppError("sqlite.scan", tableSensors, err)
		}
		r.CreatedAt = fromNanos(created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError("sqlite.query", tableSensors, err)
	}
	return out, nil
}

// QueryAlerts returns matching alerts, newest first.
func (s *SQLiteStore) QueryAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	var w where
	w.eq("village", filter.Village)
	w.eq("disease_or_parameter", filter.DiseaseOrParameter)
	if filter.Auto != nil {
		w.add("auto = ?", boolToInt(*filter.Auto))
	}
	w.since(filter.CreatedAfter)
	if len(filter.TargetRolesOverlap) > 0 {
		placeholders := make([]string, 0, len(filter.TargetRolesOverlap))
		args := make([]any, 0, len(filter.TargetRolesOverlap))
		for _, r := range filter.TargetRolesOverlap {
			placeholders = append(placeholders, "?")
			args = append(args, string(r))
		}
		w.add("EXISTS (SELECT 1 FROM json_each(alerts.target_roles) WHERE json_each.value IN ("+strings.Join(placeholders, ",")+"))", args...)
	}

	query := "SELECT id, message, target_roles, created_by, village, type, disease_or_parameter, value, auto, created_at, updated_at FROM alerts" +
		w.sql() + " ORDER BY created_at DESC" + limitClause(filter.Limit)
	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, utils.NewAppError("sqlite.query", tableAlerts, err)
	}
	defer rows.Close()

	out := make([]models.Alert, 0)
	for rows.Next() {
		var (
			a                models.Alert
			roles, alertType string
			value            sql.NullFloat64
			auto             int
			created, updated int64
		)
		if err := rows.Scan(&a.ID, &a.Message, &roles, &a.CreatedBy, &a.Village, &alertType, &a.DiseaseOrParameter, &value, &auto, &created, &updated); err != nil {
			return nil, utils.NewAppError("sqlite.scan", tableAlerts, err)
		}
		if err := json.Unmarshal([]byte(roles), &a.TargetRoles); err != nil {
			return nil, utils.NewAppError("sqlite.scan", tableAlerts, fmt.Errorf("decode target roles: %w", err))
		}
		a.Type = models.AlertType(alertType)
		if value.Valid {
			a.Value = models.Float64(value.Float64)
		}
		a.Auto = auto != 0
		a.CreatedAt = fromNanos(created)
		a.UpdatedAt = fromNanos(updated)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError("sqlite.query", tableAlerts, err)
	}
	return out, nil
}

// QueryProfiles returns matching profiles, oldest first.
func (s *SQLiteStore) QueryProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	var w where
	w.eq("role", string(filter.Role))

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, email, role, village, created_at FROM profiles"+w.sql()+" ORDER BY created_at ASC"+limitClause(filter.Limit), w.args...)
	if err != nil {
		return nil, utils.NewAppError("sqlite.query", tableProfiles, err)
	}
	defer rows.Close()

	out := make([]models.Profile, 0)
	for rows.Next() {
		var p models.Profile
		var role string
		var created int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &role, &p.Village, &created); err != nil {
			return nil, utils.NewAppError("sqlite.scan", tableProfiles, err)
		}
		p.Role = models.Role(role)
		p.CreatedAt = fromNanos(created)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError("sqlite.query", tableProfiles, err)
	}
	return out, nil
}

// InsertAlert stores a new alert.
func (s *SQLiteStore) InsertAlert(ctx context.Context, insert models.AlertInsert) (models.Alert, error) {
	roles := insert.TargetRoles
	if roles == nil {
		roles = []models.Role{}
	}
	encoded, err := json.Marshal(roles)
	if err != nil {
		return models.Alert{}, utils.NewAppError("sqlite.insert", tableAlerts, err)
	}

	now := s.now()
	alert := models.Alert{
		ID:                 uuid.NewString(),
		Message:            insert.Message,
		TargetRoles:        append([]models.Role(nil), roles...),
		CreatedBy:          insert.CreatedBy,
		Village:            insert.Village,
		Type:               insert.Type,
		DiseaseOrParameter: insert.DiseaseOrParameter,
		Auto:               insert.Auto,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	var value any
	if insert.Value != nil {
		value = *insert.Value
		alert.Value = models.Float64(*insert.Value)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, message, target_roles, created_by, village, type, disease_or_parameter, value, auto, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.Message, string(encoded), alert.CreatedBy, alert.Village, string(alert.Type),
		alert.DiseaseOrParameter, value, boolToInt(alert.Auto), now.UnixNano(), now.UnixNano())
	if err != nil {
		return models.Alert{}, utils.NewAppError("sqlite.insert", tableAlerts, err)
	}
	return alert, nil
}

// InsertReport stores a new report.
func (s *SQLiteStore) InsertReport(ctx context.Context, sub models.ReportSubmission) (models.Report, error) {
	created := sub.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	report := models.Report{
		ID:           uuid.NewString(),
		PatientName:  sub.PatientName,
		Village:      sub.Village,
		Symptoms:     sub.Symptoms,
		WaterSource:  sub.WaterSource,
		SubmittedVia: sub.SubmittedVia,
		SubmitterID:  sub.SubmitterID,
		CreatedAt:    created,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, patient_name, village, symptoms, water_source, submitted_via, asha_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.PatientName, report.Village, report.Symptoms, report.WaterSource,
		string(report.SubmittedVia), report.SubmitterID, created.UnixNano())
	if err != nil {
		return models.Report{}, utils.NewAppError("sqlite.insert", tableReports, err)
	}
	return report, nil
}

// InsertSensorReading stores a new reading.
func (s *SQLiteStore) InsertSensorReading(ctx context.Context, sub models.SensorSubmission) (models.SensorReading, error) {
	created := sub.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	reading := models.SensorReading{
		ID:        uuid.NewString(),
		Village:   sub.Village,
		PH:        sub.PH,
		Turbidity: sub.Turbidity,
		CreatedAt: created,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sensors (id, village, ph, turbidity, created_at) VALUES (?, ?, ?, ?, ?)",
		reading.ID, reading.Village, reading.PH, reading.Turbidity, created.UnixNano())
	if err != nil {
		return models.SensorReading{}, utils.NewAppError("sqlite.insert", tableSensors, err)
	}
	return reading, nil
}

// InsertProfile stores a profile, assigning missing ids.
func (s *SQLiteStore) InsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.UserID == "" {
		profile.UserID = uuid.NewString()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO profiles (id, user_id, name, email, role, village, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		profile.ID, profile.UserID, profile.Name, profile.Email, string(profile.Role), profile.Village, profile.CreatedAt.UnixNano())
	if err != nil {
		return models.Profile{}, utils.NewAppError("sqlite.insert", tableProfiles, err)
	}
	return profile, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) eq(column, value string) {
	if value != "" {
		w.add(column+" = ?", value)
	}
}

func (w *where) since(t time.Time) {
	if !t.IsZero() {
		w.add("created_at >= ?", t.UnixNano())
	}
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
