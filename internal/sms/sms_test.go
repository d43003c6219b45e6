package sms

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

func TestRenderParseRoundTrip(t *testing.T) {
	at := time.Date(2024, 8, 14, 9, 30, 0, 0, time.UTC)
	body := Render(models.ReportSubmission{PatientName: "Mina Das", Age: 34, Village: "Rampur", Symptoms: "Diarrhea, fever"}, at)

	want := "[VILLAGER HEALTH REPORT]\nName: Mina Das\nAge: 34\nVillage: Rampur\nSymptoms: Diarrhea, fever\nTime: 2024-08-14 09:30:00\n[Please process this villager report]"
	if body != want {
		t.Fatalf("unexpected body:\n%s", body)
	}

	msg, err := Parse(body, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(Message{PatientName: "Mina Das", Age: 34, Village: "Rampur", Symptoms: "Diarrhea, fever", SentAt: at}, msg); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}

	sub := msg.Submission("villager-1", false)
	if sub.SubmittedVia != models.ChannelSMSVillager || sub.WaterSource != "Unknown" || !sub.CreatedAt.IsZero() {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if msg.Submission("asha-1", true).SubmittedVia != models.ChannelSMS {
		t.Fatalf("ASHA relays should use the SMS channel")
	}
}

func TestParseToleratesFormatting(t *testing.T) {
	body := "[villager health report]\r\nNAME:  Ravi \r\nage:\r\nVillage: Sonpur\r\nSymptoms: Vomiting\r\nTime: yesterday\r\n"
	msg, err := Parse(body, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.PatientName != "Ravi" || msg.Age != 0 || msg.Village != "Sonpur" || !msg.SentAt.IsZero() {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseTimeLayouts(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	cases := []struct {
		name  string
		value string
		want  time.Time
	}{
		{name: "plain", value: "2026-08-01 10:15:30", want: time.Date(2026, 8, 1, 10, 15, 30, 0, ist)},
		{name: "rfc3339 keeps its zone", value: "2026-08-01T10:15:30.5Z", want: time.Date(2026, 8, 1, 10, 15, 30, 500000000, time.UTC)},
		{name: "day first", value: "01/08/2026, 10:15:30", want: time.Date(2026, 8, 1, 10, 15, 30, 0, ist)},
		{name: "month first is ignored", value: "1/8/2026, 10:15:30 AM"},
		{name: "garbage", value: "soon"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := "[VILLAGER HEALTH REPORT]\nName: A\nVillage: V\nSymptoms: Fever\nTime: " + tc.value
			msg, err := Parse(body, ist)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !msg.SentAt.Equal(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, msg.SentAt)
			}
			if !msg.Submission("villager-1", false).CreatedAt.IsZero() {
				t.Fatalf("submission must not carry the SMS time")
			}
		})
	}
}

func TestParseRejectsOtherMessages(t *testing.T) {
	if _, err := Parse("hello, please call me", time.UTC); !errors.Is(err, ErrNotReport) {
		t.Fatalf("expected ErrNotReport, got %v", err)
	}

	_, err := Parse("[VILLAGER HEALTH REPORT]\nName: A\nVillage:\n", time.UTC)
	if !errors.Is(err, ErrIncomplete) || !strings.Contains(err.Error(), "Village, Symptoms") {
		t.Fatalf("expected incomplete error naming fields, got %v", err)
	}

	if _, err := Parse("[VILLAGER HEALTH REPORT]\nName: A\nAge: old\nVillage: V\nSymptoms: S", time.UTC); err == nil {
		t.Fatalf("expected invalid age error")
	}
}
