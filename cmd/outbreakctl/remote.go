package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jalrakshak/outbreak-engine/internal/api"
)

var (
	detectVillage  string
	detectSymptoms string

	alertsRole    string
	alertsVillage string
	alertsLimit   int
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run outbreak detection now",
	Long: `Run the outbreak rules synchronously and print the run summary.

Without --village and --symptoms only the water-quality sweep runs.`,
	RunE: runDetect,
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List alerts addressed to a role",
	RunE:  runAlerts,
}

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Show village hotspots for the trailing week",
	RunE:  runHotspots,
}

func runDetect(cmd *cobra.Command, _ []string) error {
	var summary api.RunSummary
	req := api.DetectionRequest{Village: detectVillage, Symptoms: detectSymptoms}
	if err := call(cmd.Context(), "RunDetection", req, &summary); err != nil {
		return err
	}
	for _, rule := range summary.RuleNames() {
		fmt.Fprintf(cmd.ErrOrStderr(), "rule %s failed: %s\n", rule, summary.RuleErrors[rule])
	}
	return printJSON(cmd.OutOrStdout(), summary)
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	var resp api.AlertsResponse
	req := api.AlertsRequest{Role: alertsRole, Village: alertsVillage, Limit: alertsLimit}
	if err := call(cmd.Context(), "ListAlerts", req, &resp); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp.Alerts)
}

func runHotspots(cmd *cobra.Command, _ []string) error {
	var resp api.HotspotsResponse
	if err := call(cmd.Context(), "GetHotspots", struct{}{}, &resp); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp.Hotspots)
}

func call(ctx context.Context, method string, req, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := grpc.NewClient(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connect %s: %w", serverAddr, err)
	}
	defer conn.Close()

	in, err := api.EncodeStruct(req)
	if err != nil {
		return err
	}
	var resp *structpb.Struct
	if resp, err = api.NewOutbreakEngineClient(conn).Call(ctx, method, in); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return api.DecodeStruct(resp, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
