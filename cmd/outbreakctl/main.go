// Command outbreakctl talks to a running outbreak-engine over gRPC and renders or
// reads SMS report bodies locally.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "outbreakctl",
	Short:         "Operate the outbreak detection engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", envOr("OUTBREAK_GRPC_TARGET", "localhost:50051"), "gRPC address of outbreak-engine")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "RPC timeout")

	detectCmd.Flags().StringVar(&detectVillage, "village", "", "Village of the triggering report")
	detectCmd.Flags().StringVar(&detectSymptoms, "symptoms", "", "Symptom label of the triggering report")

	alertsCmd.Flags().StringVar(&alertsRole, "role", "official", "Role whose alerts to list")
	alertsCmd.Flags().StringVar(&alertsVillage, "village", "", "Restrict to one village")
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 20, "Maximum alerts to return")

	smsRenderCmd.Flags().StringVar(&renderName, "name", "", "Patient name")
	smsRenderCmd.Flags().IntVar(&renderAge, "age", 0, "Patient age")
	smsRenderCmd.Flags().StringVar(&renderVillage, "village", "", "Village")
	smsRenderCmd.Flags().StringVar(&renderSymptoms, "symptoms", "", "Symptoms")
	smsParseCmd.Flags().StringVar(&parseFile, "file", "", "Read the SMS body from a file instead of stdin")

	smsCmd.AddCommand(smsRenderCmd, smsParseCmd)
	rootCmd.AddCommand(detectCmd, alertsCmd, hotspotsCmd, smsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
