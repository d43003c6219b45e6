package api

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// GRPCHandler adapts a Backend to OutbreakEngineServer.
type GRPCHandler struct {
	logger  *slog.Logger
	backend Backend
}

// NewGRPCHandler constructs the gRPC adapter.
func NewGRPCHandler(logger *slog.Logger, backend Backend) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{logger: logger, backend: backend}
}

var _ OutbreakEngineServer = (*GRPCHandler)(nil)

// SubmitReport implements OutbreakEngineServer.
func (h *GRPCHandler) SubmitReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var sub models.ReportSubmission
	if err := DecodeStruct(in, &sub); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	report, err := h.backend.SubmitReport(ctx, sub)
	if err != nil {
		return nil, h.toStatus("SubmitReport", err)
	}
	return h.reply(report)
}

// SyncReports implements OutbreakEngineServer.
func (h *GRPCHandler) SyncReports(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SyncRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return h.reply(h.backend.SyncReports(ctx, req.Reports))
}

// SubmitSensorReading implements OutbreakEngineServer.
func (h *GRPCHandler) SubmitSensorReading(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var sub models.SensorSubmission
	if err := DecodeStruct(in, &sub); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	reading, err := h.backend.SubmitSensorReading(ctx, sub)
	if err != nil {
		return nil, h.toStatus("SubmitSensorReading", err)
	}
	return h.reply(reading)
}

// RunDetection implements OutbreakEngineServer.
func (h *GRPCHandler) RunDetection(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req DetectionRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	summary, err := h.backend.RunDetection(ctx, req.trigger())
	if err != nil {
		return nil, h.toStatus("RunDetection", err)
	}
	return h.reply(toRunSummary(summary))
}

// ListAlerts implements OutbreakEngineServer.
func (h *GRPCHandler) ListAlerts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req AlertsRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	alerts, err := h.backend.ListAlerts(ctx, req.query())
	if err != nil {
		return nil, h.toStatus("ListAlerts", err)
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return h.reply(AlertsResponse{Alerts: alerts})
}

// GetHotspots implements OutbreakEngineServer.
func (h *GRPCHandler) GetHotspots(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	hotspots, err := h.backend.Hotspots(ctx)
	if err != nil {
		return nil, h.toStatus("GetHotspots", err)
	}
	if hotspots == nil {
		hotspots = []models.VillageHotspot{}
	}
	return h.reply(HotspotsResponse{Hotspots: hotspots})
}

// ParseSMS implements OutbreakEngineServer.
func (h *GRPCHandler) ParseSMS(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SMSRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	msg, err := h.backend.ParseSMS(req.Body)
	if err != nil {
		return nil, h.toStatus("ParseSMS", err)
	}
	return h.reply(toParsedSMS(msg))
}

func (h *GRPCHandler) reply(v any) (*structpb.Struct, error) {
	out, err := EncodeStruct(v)
	if err != nil {
		h.logger.Error("encode response failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func (h *GRPCHandler) toStatus(method string, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidSubmission):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	h.logger.Error("grpc call failed", slog.String("method", method), slog.Any("error", err))
	return status.Errorf(codes.Internal, "%s failed: %v", method, err)
}
