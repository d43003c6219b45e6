package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

const maxBodyBytes = 1 << 20

// HTTPHandler serves the JSON API used by the reporting app and the SMS gateway.
type HTTPHandler struct {
	logger  *slog.Logger
	backend Backend
}

// NewHTTPHandler constructs the JSON API handler.
func NewHTTPHandler(logger *slog.Logger, backend Backend) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{logger: logger, backend: backend}
}

// NewRouter mounts the JSON API. feed may be nil when the websocket feed is disabled.
func NewRouter(h *HTTPHandler, feed http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports", h.submitReport)
		r.Post("/reports/sync", h.syncReports)
		r.Post("/reports/sms", h.submitSMS)
		r.Post("/sms/parse", h.parseSMS)
		r.Post("/sensors", h.submitSensorReading)
		r.Post("/detection/run", h.runDetection)
		r.Get("/alerts", h.listAlerts)
		r.Get("/hotspots", h.hotspots)
		if feed != nil {
			r.Handle("/feed", feed)
		}
	})
	return r
}

func (h *HTTPHandler) submitReport(w http.ResponseWriter, r *http.Request) {
	var sub models.ReportSubmission
	if !h.decode(w, r, &sub) {
		return
	}
	report, err := h.backend.SubmitReport(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *HTTPHandler) syncReports(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.backend.SyncReports(r.Context(), req.Reports))
}

func (h *HTTPHandler) submitSMS(w http.ResponseWriter, r *http.Request) {
	var req SMSRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.backend.SubmitSMS(r.Context(), req.Body, req.ASHAID, req.ViaASHA)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *HTTPHandler) parseSMS(w http.ResponseWriter, r *http.Request) {
	var req SMSRequest
	if !h.decode(w, r, &req) {
		return
	}
	msg, err := h.backend.ParseSMS(req.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toParsedSMS(msg))
}

func (h *HTTPHandler) submitSensorReading(w http.ResponseWriter, r *http.Request) {
	var sub models.SensorSubmission
	if !h.decode(w, r, &sub) {
		return
	}
	reading, err := h.backend.SubmitSensorReading(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

func (h *HTTPHandler) runDetection(w http.ResponseWriter, r *http.Request) {
	var req DetectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	summary, err := h.backend.RunDetection(r.Context(), req.trigger())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunSummary(summary))
}

func (h *HTTPHandler) listAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := AlertsRequest{Role: q.Get("role"), Village: q.Get("village")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = limit
	}
	alerts, err := h.backend.ListAlerts(r.Context(), req.query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, AlertsResponse{Alerts: alerts})
}

func (h *HTTPHandler) hotspots(w http.ResponseWriter, r *http.Request) {
	hotspots, err := h.backend.Hotspots(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if hotspots == nil {
		hotspots = []models.VillageHotspot{}
	}
	writeJSON(w, http.StatusOK, HotspotsResponse{Hotspots: hotspots})
}

// decode reads a JSON body. An empty body leaves out untouched.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrInvalidSubmission) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
