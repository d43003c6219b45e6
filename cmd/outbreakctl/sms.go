package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jalrakshak/outbreak-engine/internal/api"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/sms"
)

var (
	renderName     string
	renderAge      int
	renderVillage  string
	renderSymptoms string

	parseFile string
)

var smsCmd = &cobra.Command{
	Use:   "sms",
	Short: "Work with SMS report bodies",
}

var smsRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the SMS body a villager would send for a report",
	RunE:  runSMSRender,
}

var smsParseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse an SMS report body and print its fields",
	RunE:  runSMSParse,
}

func runSMSRender(cmd *cobra.Command, _ []string) error {
	if renderName == "" || renderVillage == "" || renderSymptoms == "" {
		return fmt.Errorf("--name, --village and --symptoms are required")
	}
	sub := models.ReportSubmission{PatientName: renderName, Age: renderAge, Village: renderVillage, Symptoms: renderSymptoms}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), sms.Render(sub, time.Now()))
	return err
}

func runSMSParse(cmd *cobra.Command, _ []string) error {
	var src io.Reader = cmd.InOrStdin()
	if parseFile != "" {
		f, err := os.Open(parseFile)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read sms body: %w", err)
	}
	msg, err := sms.Parse(string(body), time.Local)
	if err != nil {
		return err
	}
	parsed := api.ParsedSMS{PatientName: msg.PatientName, Age: msg.Age, Village: msg.Village, Symptoms: msg.Symptoms}
	if !msg.SentAt.IsZero() {
		parsed.SentAt = &msg.SentAt
	}
	return printJSON(cmd.OutOrStdout(), parsed)
}
