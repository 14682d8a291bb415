package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/catalog-service/internal/adapter/httpapi"
	"github.com/example/catalog-service/internal/adapter/memory"
	"github.com/example/catalog-service/internal/domain"
	"github.com/example/catalog-service/internal/metrics"
	"github.com/example/catalog-service/internal/usecase"
)

var (
	t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 = time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
)

type brokenRepo struct{}

var errUnavailable = errors.New("repository unavailable")

func (brokenRepo) List(context.Context) ([]domain.Device, error) { return nil, errUnavailable }
func (brokenRepo) GetByID(context.Context, string) (domain.Device, bool, error) {
	return domain.Device{}, false, errUnavailable
}
func (brokenRepo) Save(context.Context, domain.Device) (domain.Device, error) {
	return domain.Device{}, errUnavailable
}
func (brokenRepo) Delete(context.Context, string) error { return errUnavailable }

func newServer(t *testing.T, repo domain.DeviceRepository) (*httpapi.Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	uc := httpapi.UseCases{
		List:   usecase.ListDevices{Repo: repo},
		Get:    usecase.GetDevice{Repo: repo},
		Upsert: usecase.UpsertDevice{Repo: repo, Now: func() time.Time { return t1 }},
		Delete: usecase.DeleteDevice{Repo: repo},
	}
	return httpapi.NewServer(uc, zap.New(core), m), logs
}

func do(s *httpapi.Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestHandleList(t *testing.T) {
	repo := memory.NewDeviceRepo(
		domain.Device{ID: "p-001", Name: "Seeded Widget", PricePence: 1299, Description: "widget", UpdatedAt: t0},
		domain.Device{ID: "p-002", Name: "Seeded Gadget", PricePence: 2599, Description: "gadget", UpdatedAt: t1},
	)
	s, logs := newServer(t, repo)

	w := do(s, http.MethodGet, "/api/devices", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var got []httpapi.DeviceJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []httpapi.DeviceJSON{
		{ID: "p-001", Name: "Seeded Widget", PricePence: 1299, Description: "widget", UpdatedAt: "2025-01-01T00:00:00.000Z"},
		{ID: "p-002", Name: "Seeded Gadget", PricePence: 2599, Description: "gadget", UpdatedAt: "2025-03-04T05:06:07.890Z"},
	}, got)

	assert.Equal(t, 1, logs.FilterMessage("request completed").Len())
}

func TestHandleList_Empty(t *testing.T) {
	s, _ := newServer(t, memory.NewDeviceRepo())

	w := do(s, http.MethodGet, "/api/devices", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHandleList_Failure(t *testing.T) {
	s, _ := newServer(t, brokenRepo{})

	w := do(s, http.MethodGet, "/api/devices", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to list devices","error":"repository unavailable"}`, w.Body.String())
}

func TestHandleUpsert(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		repo     domain.DeviceRepository
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "put creates",
			method:   http.MethodPut,
			body:     `{"id":"p3","name":"Updated","pricePence":350,"description":"old"}`,
			wantCode: http.StatusOK,
			wantBody: `{"id":"p3","name":"Updated","pricePence":350,"description":"old","updatedAt":"2025-03-04T05:06:07.890Z"}`,
		},
		{
			name:     "post with zero price",
			method:   http.MethodPost,
			body:     `{"id":"free","name":"Freebie","pricePence":0,"description":"free"}`,
			wantCode: http.StatusOK,
			wantBody: `{"id":"free","name":"Freebie","pricePence":0,"description":"free","updatedAt":"2025-03-04T05:06:07.890Z"}`,
		},
		{
			name:     "missing description",
			method:   http.MethodPut,
			body:     `{"id":"p3","name":"Updated","pricePence":350}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"success":false,"message":"Missing required fields: id, name, pricePence, description"}`,
		},
		{
			name:     "not an object",
			method:   http.MethodPut,
			body:     `"hello"`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "fractional price",
			method:   http.MethodPut,
			body:     `{"id":"p3","name":"Updated","pricePence":9.99,"description":"old"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"success":false,"message":"Failed to upsert device","error":"Device pricePence must be a non-negative integer.","field":"pricePence"}`,
		},
		{
			name:     "whitespace name",
			method:   http.MethodPost,
			body:     `{"id":"p3","name":"  ","pricePence":1,"description":"old"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "repository failure",
			method:   http.MethodPut,
			repo:     brokenRepo{},
			body:     `{"id":"p3","name":"Updated","pricePence":350,"description":"old"}`,
			wantCode: http.StatusInternalServerError,
			wantBody: `{"success":false,"message":"Failed to upsert device","error":"repository unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := tt.repo
			if repo == nil {
				repo = memory.NewDeviceRepo()
			}
			s, _ := newServer(t, repo)

			w := do(s, tt.method, "/api/devices", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestHandleUpsert_ReplacesStoredDevice(t *testing.T) {
	repo := memory.NewDeviceRepo(domain.Device{ID: "p3", Name: "Old", PricePence: 300, Description: "old", UpdatedAt: t0})
	s, _ := newServer(t, repo)

	w := do(s, http.MethodPut, "/api/devices", `{"id":"p3","name":"Updated","pricePence":350,"description":"old"}`)
	require.Equal(t, http.StatusOK, w.Code)

	got, ok, err := repo.GetByID(context.Background(), "p3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Device{ID: "p3", Name: "Updated", PricePence: 350, Description: "old", UpdatedAt: t1}, got)
}

func TestHandleGetAndDelete(t *testing.T) {
	repo := memory.NewDeviceRepo(domain.Device{ID: "p4", Name: "ToDelete", PricePence: 400, Description: "bye", UpdatedAt: t0})
	s, _ := newServer(t, repo)

	w := do(s, http.MethodGet, "/api/devices/p4", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"p4","name":"ToDelete","pricePence":400,"description":"bye","updatedAt":"2025-01-01T00:00:00.000Z"}`, w.Body.String())

	w = do(s, http.MethodDelete, "/api/devices/p4", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(s, http.MethodDelete, "/api/devices/p4", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(s, http.MethodGet, "/api/devices/p4", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetAndDelete_Failure(t *testing.T) {
	s, logs := newServer(t, brokenRepo{})

	assert.Equal(t, http.StatusInternalServerError, do(s, http.MethodGet, "/api/devices/p4", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(s, http.MethodDelete, "/api/devices/p4", "").Code)
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestRequestIDPropagated(t *testing.T) {
	s, _ := newServer(t, memory.NewDeviceRepo())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc123")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc123", w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newServer(t, memory.NewDeviceRepo())
	do(s, http.MethodGet, "/api/devices", "")

	w := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `catalog_http_requests_total{method="GET",route="/api/devices",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `catalog_usecase_results_total{outcome="ok",usecase="list"} 1`)
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("BST", 3600)
	assert.Equal(t, "2025-06-01T11:00:00.000Z", httpapi.FormatTimestamp(time.Date(2025, 6, 1, 12, 0, 0, 0, loc)))
}

func TestHandleGetAndDelete_EscapedID(t *testing.T) {
	const id = "a/b?c d%"
	repo := memory.NewDeviceRepo()
	s, _ := newServer(t, repo)

	w := do(s, http.MethodPut, "/api/devices", `{"id":"a/b?c d%","name":"Odd","pricePence":1,"description":"d"}`)
	require.Equal(t, http.StatusOK, w.Code)

	path := "/api/devices/" + url.PathEscape(id)
	w = do(s, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got httpapi.DeviceJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)

	w = do(s, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, repo.Len())

	w = do(s, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
