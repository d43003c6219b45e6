package api

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jalrakshak/outbreak-engine/internal/config"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

func startTestServer(t *testing.T, backend Backend) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServerOnListener(config.ServerConfig{GracefulTimeout: time.Second}, lis, NewGRPCHandler(utils.DiscardLogger(), backend))
	go func() { _ = srv.Start() }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return conn
}

func mustStruct(t *testing.T, v map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(v)
	if err != nil {
		t.Fatalf("new struct: %v", err)
	}
	return s
}

func TestGRPCSubmitReportRoundTrip(t *testing.T) {
	backend := &fakeBackend{}
	client := NewOutbreakEngineClient(startTestServer(t, backend))

	out, err := client.Call(context.Background(), "SubmitReport", mustStruct(t, map[string]any{
		"patient_name": "Ravi", "age": 34, "village": "Rampur", "symptoms": "Diarrhea", "asha_id": "asha-1",
	}))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var report models.Report
	if err := DecodeStruct(out, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.ID != "r-1" || !report.CreatedAt.Equal(testNow) {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(backend.submitted) != 1 || backend.submitted[0].Age != 34 {
		t.Fatalf("age not carried through: %+v", backend.submitted)
	}
}

func TestGRPCInvalidSubmissionStatus(t *testing.T) {
	client := NewOutbreakEngineClient(startTestServer(t, &fakeBackend{}))

	_, err := client.Call(context.Background(), "ListAlerts", mustStruct(t, map[string]any{"role": "mayor"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	_, err = client.Call(context.Background(), "ParseSMS", mustStruct(t, map[string]any{"body": "hello"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for non-report sms, got %v", err)
	}
}

func TestGRPCRunDetectionAndHotspots(t *testing.T) {
	backend := &fakeBackend{}
	client := NewOutbreakEngineClient(startTestServer(t, backend))

	out, err := client.Call(context.Background(), "RunDetection", mustStruct(t, map[string]any{"village": "Rampur", "symptoms": "Diarrhea"}))
	if err != nil {
		t.Fatalf("run detection: %v", err)
	}
	var summary RunSummary
	if err := DecodeStruct(out, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(summary.Created) != 1 || summary.Suppressed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if names := summary.RuleNames(); len(names) != 1 || names[0] != "water_quality" {
		t.Fatalf("unexpected rule errors %v", names)
	}

	out, err = client.Call(context.Background(), "GetHotspots", nil)
	if err != nil {
		t.Fatalf("hotspots: %v", err)
	}
	var hotspots HotspotsResponse
	if err := DecodeStruct(out, &hotspots); err != nil {
		t.Fatalf("decode hotspots: %v", err)
	}
	if len(hotspots.Hotspots) != 1 || hotspots.Hotspots[0].RiskLevel != models.RiskHigh {
		t.Fatalf("unexpected hotspots %+v", hotspots)
	}
}

func TestGRPCParseSMS(t *testing.T) {
	client := NewOutbreakEngineClient(startTestServer(t, &fakeBackend{}))
	out, err := client.Call(context.Background(), "ParseSMS", mustStruct(t, map[string]any{"body": smsBody}))
	if err != nil {
		t.Fatalf("parse sms: %v", err)
	}
	var parsed ParsedSMS
	if err := DecodeStruct(out, &parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.PatientName != "Ravi" || parsed.Age != 34 || parsed.SentAt == nil {
		t.Fatalf("unexpected parse %+v", parsed)
	}
}

func TestGRPCHealthServing(t *testing.T) {
	conn := startTestServer(t, &fakeBackend{})
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: OutbreakEngineServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected status %v", resp.GetStatus())
	}
}
