// Command seed fills a local SQLite store with villages, reports and sensor samples
// so outbreak-engine has something to detect against.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/repo"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

type seedReport struct {
	village  string
	symptoms string
	ago      time.Duration
	via      models.Channel
}

type seedSensor struct {
	village   string
	ph        float64
	turbidity float64
	ago       time.Duration
}

var profiles = []models.Profile{
	{Name: "Block Medical Officer", Email: "bmo@example.org", Role: models.RoleOfficial, Village: "Rampur"},
	{Name: "Sunita", Email: "sunita@example.org", Role: models.RoleASHA, Village: "Rampur"},
	{Name: "Kavita", Email: "kavita@example.org", Role: models.RoleASHA, Village: "Sonpur"},
}

var reports = []seedReport{
	{"Rampur", "Diarrhea", 2 * time.Hour, models.ChannelOnline},
	{"Rampur", "Diarrhea", 5 * time.Hour, models.ChannelOfflineVillager},
	{"Rampur", "Diarrhea", 9 * time.Hour, models.ChannelSMSVillager},
	{"Rampur", "Vomiting", 12 * time.Hour, models.ChannelOnline},
	{"Sonpur", "Fever", 3 * time.Hour, models.ChannelOnline},
	{"Sonpur", "Cholera", 30 * time.Hour, models.ChannelSMS},
	{"Devgaon", "Skin rash", 50 * time.Hour, models.ChannelOnlineVillager},
}

var sensors = []seedSensor{
	{"Rampur", 6.1, 3.2, time.Hour},
	{"Sonpur", 7.2, 8.4, 4 * time.Hour},
	{"Devgaon", 7.0, 1.1, 2 * time.Hour},
}

func main() {
	var path string
	flag.StringVar(&path, "db", "data/outbreak.db", "SQLite database to seed")
	flag.Parse()

	logger := utils.NewLogger("info", false)
	if err := seed(context.Background(), logger, path, time.Now()); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete", slog.String("db", path))
}

func seed(ctx context.Context, logger *slog.Logger, path string, now time.Time) error {
	store, err := repo.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	asha := ""
	for _, p := range profiles {
		created, err := store.InsertProfile(ctx, p)
		if err != nil {
			return fmt.Errorf("insert profile %s: %w", p.Name, err)
		}
		if created.Role == models.RoleASHA && asha == "" {
			asha = created.UserID
		}
	}

	for _, r := range reports {
		sub := models.ReportSubmission{
			PatientName:  "Patient " + r.village,
			Village:      r.village,
			Symptoms:     r.symptoms,
			SubmittedVia: r.via,
			SubmitterID:  asha,
			CreatedAt:    now.Add(-r.ago),
		}
		if r.via.Villager() {
			sub.WaterSource = "Unknown"
		} else {
			sub.WaterSource = "Hand pump"
		}
		if _, err := store.InsertReport(ctx, sub); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
	}

	for _, s := range sensors {
		if _, err := store.InsertSensorReading(ctx, models.SensorSubmission{
			Village: s.village, PH: s.ph, Turbidity: s.turbidity, CreatedAt: now.Add(-s.ago),
		}); err != nil {
			return fmt.Errorf("insert sensor reading: %w", err)
		}
	}

	logger.Info("seeded records",
		slog.Int("profiles", len(profiles)),
		slog.Int("reports", len(reports)),
		slog.Int("sensors", len(sensors)),
	)
	return nil
}
