package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/jalrakshak/outbreak-engine/internal/api"
)

func TestSMSRenderThenParse(t *testing.T) {
	renderName, renderAge, renderVillage, renderSymptoms = "Asha Devi", 41, "Rampur", "Loose motions"
	defer func() { renderName, renderAge, renderVillage, renderSymptoms = "", 0, "", "" }()

	var rendered bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&rendered)
	if err := runSMSRender(cmd, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(rendered.String(), "[VILLAGER HEALTH REPORT]\nName: Asha Devi\nAge: 41\n") {
		t.Fatalf("unexpected body:\n%s", rendered.String())
	}

	var parsedOut bytes.Buffer
	parse := &cobra.Command{}
	parse.SetIn(strings.NewReader(rendered.String()))
	parse.SetOut(&parsedOut)
	if err := runSMSParse(parse, nil); err != nil {
		t.Fatalf("parse: %v", err)
	}
	var parsed api.ParsedSMS
	if err := json.Unmarshal(parsedOut.Bytes(), &parsed); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if parsed.PatientName != "Asha Devi" || parsed.Age != 41 || parsed.Symptoms != "Loose motions" || parsed.SentAt == nil {
		t.Fatalf("unexpected parse %+v", parsed)
	}
}

func TestSMSRenderRequiresFields(t *testing.T) {
	if err := runSMSRender(&cobra.Command{}, nil); err == nil {
		t.Fatalf("expected missing field error")
	}
}

func TestSMSParseRejectsOtherMessages(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("call me back"))
	cmd.SetOut(&bytes.Buffer{})
	if err := runSMSParse(cmd, nil); err == nil {
		t.Fatalf("expected non-report sms to fail")
	}
}
