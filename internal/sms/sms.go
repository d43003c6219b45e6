// Package sms renders and reads the plain-text report format villagers send by SMS
// when they have no data connection.
package sms

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

const (
	header  = "[VILLAGER HEALTH REPORT]"
	trailer = "[Please process this villager report]"

	// TimeLayout is the timestamp format written on the Time line.
	TimeLayout = "2006-01-02 15:04:05"
)

var (
	// ErrNotReport is returned for messages that do not carry the report header.
	ErrNotReport = errors.New("sms: not a villager health report")
	// ErrIncomplete is returned when a required line is missing or empty.
	ErrIncomplete = errors.New("sms: incomplete report")
)

// Day-first is the only locale-formatted layout read; month-first dates are ambiguous
// with it and are ignored.
var timeLayouts = []string{TimeLayout, "02/01/2006, 15:04:05"}

// Message is a parsed SMS report.
type Message struct {
	PatientName string
	Age         int
	Village     string
	Symptoms    string
	// SentAt is zero when the Time line was missing or unreadable. It is shown to
	// operators only; stored reports carry the insert time.
	SentAt time.Time
}

// Render formats a submission as an SMS body. The time is written in at's location.
func Render(sub models.ReportSubmission, at time.Time) string {
	var b strings.Builder
	b.WriteString(header + "\n")
	fmt.Fprintf(&b, "Name: %s\n", sub.PatientName)
	if sub.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", sub.Age)
	} else {
		b.WriteString("Age: \n")
	}
	fmt.Fprintf(&b, "Village: %s\n", sub.Village)
	fmt.Fprintf(&b, "Symptoms: %s\n", sub.Symptoms)
	fmt.Fprintf(&b, "Time: %s\n", at.Format(TimeLayout))
	b.WriteString(trailer)
	return b.String()
}

// Parse reads an SMS body. Keys are matched case-insensitively and unknown lines are
// ignored. Times without a zone are read in loc.
func Parse(body string, loc *time.Location) (Message, error) {
	if loc == nil {
		loc = time.Local
	}
	if !strings.Contains(strings.ToUpper(body), header) {
		return Message{}, ErrNotReport
	}

	var msg Message
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			msg.PatientName = value
		case "age":
			if value == "" {
				continue
			}
			age, err := strconv.Atoi(value)
			if err != nil || age < 0 {
				return Message{}, fmt.Errorf("sms: invalid age %q", value)
			}
			msg.Age = age
		case "village":
			msg.Village = value
		case "symptoms":
			msg.Symptoms = value
		case "time":
			msg.SentAt = parseTime(value, loc)
		}
	}
	if err := scanner.Err(); err != nil {
		return Message{}, fmt.Errorf("sms: read body: %w", err)
	}

	var missing []string
	if msg.PatientName == "" {
		missing = append(missing, "Name")
	}
	if msg.Village == "" {
		missing = append(missing, "Village")
	}
	if msg.Symptoms == "" {
		missing = append(missing, "Symptoms")
	}
	if len(missing) > 0 {
		return Message{}, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return msg, nil
}

// Submission converts the message into a report submission arriving over SMS. Reports
// relayed by an ASHA worker use the plain SMS channel.
func (m Message) Submission(submitterID string, viaASHA bool) models.ReportSubmission {
	via := models.ChannelSMSVillager
	if viaASHA {
		via = models.ChannelSMS
	}
	return models.ReportSubmission{
		PatientName:  m.PatientName,
		Age:          m.Age,
		Village:      m.Village,
		Symptoms:     m.Symptoms,
		WaterSource:  "Unknown",
		SubmittedVia: via,
		SubmitterID:  submitterID,
	}
}

func parseTime(value string, loc *time.Location) time.Time {
	if t, err := utils.ParseRFC3339(value); err == nil {
		return t
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
