package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/catalog-service/internal/domain"
	"github.com/example/catalog-service/internal/logger"
	"github.com/example/catalog-service/internal/metrics"
	"github.com/example/catalog-service/internal/usecase"
)

const maxBodyBytes = 1 << 20

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// UseCases groups the operations the transport exposes.
type UseCases struct {
	List   usecase.ListDevices
	Get    usecase.GetDevice
	Upsert usecase.UpsertDevice
	Delete usecase.DeleteDevice
}

type Server struct {
	Router  *mux.Router
	UC      UseCases
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewServer wires routes. log and m may be nil.
func NewServer(uc UseCases, log *zap.Logger, m *metrics.Metrics) *Server {
	s := &Server{Router: mux.NewRouter().UseEncodedPath(), UC: uc, log: logger.OrNop(log), metrics: m}
	s.Router.Use(s.withRequestID, s.withLogging)
	s.Router.HandleFunc("/api/devices", s.handleList).Methods(http.MethodGet)
	s.Router.HandleFunc("/api/devices", s.handleUpsert).Methods(http.MethodPut, http.MethodPost)
	s.Router.HandleFunc("/api/devices/{id:.+}", s.handleGet).Methods(http.MethodGet)
	s.Router.HandleFunc("/api/devices/{id:.+}", s.handleDelete).Methods(http.MethodDelete)
	s.Router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.Router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	return s
}

// DeviceJSON is the wire form of a device.
type DeviceJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PricePence  int64  `json:"pricePence"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updatedAt"`
}

type errorJSON struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Field   string `json:"field,omitempty"`
}

// FormatTimestamp renders t as ISO-8601 UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func toJSON(d domain.Device) DeviceJSON {
	return DeviceJSON{
		ID:          d.ID,
		Name:        d.Name,
		PricePence:  d.PricePence,
		Description: d.Description,
		UpdatedAt:   FormatTimestamp(d.UpdatedAt),
	}
}

func outcome[T any](res usecase.Result[T]) string {
	if res.Success {
		return "ok"
	}
	return string(res.Kind)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	res := s.UC.List.Execute(r.Context())
	s.metrics.ObserveResult("list", outcome(res))
	if !res.Success {
		logger.FromContext(r.Context()).Error("list devices failed", zap.String("error", res.Error))
		writeJSON(w, http.StatusInternalServerError, errorJSON{Message: "Failed to list devices", Error: res.Error})
		return
	}
	out := make([]DeviceJSON, 0, len(res.Data))
	for _, d := range res.Data {
		out = append(out, toJSON(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// deviceID returns the unescaped {id}; ids may contain '/' and '?'.
func deviceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Message: "Invalid device id", Error: err.Error()})
		return "", false
	}
	return id, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	res := s.UC.Get.Execute(r.Context(), id)
	s.metrics.ObserveResult("get", outcome(res))
	switch {
	case !res.Success:
		logger.FromContext(r.Context()).Error("get device failed", zap.String("id", id), zap.String("error", res.Error))
		writeJSON(w, http.StatusInternalServerError, errorJSON{Message: "Failed to get device", Error: res.Error})
	case !res.Data.Found:
		writeJSON(w, http.StatusNotFound, errorJSON{Message: "Device not found"})
	default:
		writeJSON(w, http.StatusOK, toJSON(res.Data.Device))
	}
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Message: "Request body is required", Error: err.Error()})
		return
	}
	cmd, err := usecase.ParseUpsertCommand(raw)
	switch {
	case errors.Is(err, usecase.ErrMissingFields):
		writeJSON(w, http.StatusBadRequest, errorJSON{Message: "Missing required fields: id, name, pricePence, description"})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorJSON{Message: "Request body is required", Error: err.Error()})
		return
	}

	res := s.UC.Upsert.Execute(r.Context(), cmd)
	s.metrics.ObserveResult("upsert", outcome(res))
	if !res.Success {
		status := http.StatusInternalServerError
		if res.Kind == usecase.KindValidation {
			status = http.StatusBadRequest
		} else {
			logger.FromContext(r.Context()).Error("upsert device failed", zap.String("id", cmd.ID), zap.String("error", res.Error))
		}
		writeJSON(w, status, errorJSON{Message: "Failed to upsert device", Error: res.Error, Field: res.Field})
		return
	}
	writeJSON(w, http.StatusOK, toJSON(res.Data))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	res := s.UC.Delete.Execute(r.Context(), id)
	s.metrics.ObserveResult("delete", outcome(res))
	if !res.Success {
		logger.FromContext(r.Context()).Error("delete device failed", zap.String("id", id), zap.String("error", res.Error))
		writeJSON(w, http.StatusInternalServerError, errorJSON{Message: "Failed to delete device", Error: res.Error})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
