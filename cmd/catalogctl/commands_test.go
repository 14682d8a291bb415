package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/catalog-service/internal/adapter/httpapi"
	"github.com/example/catalog-service/internal/adapter/memory"
	"github.com/example/catalog-service/internal/usecase"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := memory.NewDeviceRepo(memory.ExampleDevices(at)...)
	srv := httptest.NewServer(httpapi.NewServer(httpapi.UseCases{
		List:   usecase.ListDevices{Repo: repo},
		Get:    usecase.GetDevice{Repo: repo},
		Upsert: usecase.UpsertDevice{Repo: repo, Now: func() time.Time { return at }},
		Delete: usecase.DeleteDevice{Repo: repo},
	}, nil, nil).Router)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(append([]string{"--url", srv.URL}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	srv := newAPI(t)

	out, err := run(t, srv, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "p-001")
	assert.Contains(t, out, "£12.99")
	assert.Contains(t, out, "£25.99")

	out, err = run(t, srv, "upsert", "p3", "--name", "Widget", "--price", "3.50", "--description", "d")
	require.NoError(t, err)
	assert.Contains(t, out, "£3.50")

	out, err = run(t, srv, "--out", "json", "get", "p3")
	require.NoError(t, err)
	assert.Contains(t, out, `"pricePence": 350`)

	out, err = run(t, srv, "delete", "p3")
	require.NoError(t, err)
	assert.Equal(t, "deleted p3\n", out)

	_, err = run(t, srv, "get", "p3")
	assert.ErrorContains(t, err, "get failed: status=404: Device not found")
}

func TestCommands_IDNeedingEscape(t *testing.T) {
	srv := newAPI(t)

	_, err := run(t, srv, "upsert", "a/b?c", "--name", "Odd", "--price", "1", "--description", "d")
	require.NoError(t, err)

	out, err := run(t, srv, "get", "a/b?c")
	require.NoError(t, err)
	assert.Contains(t, out, "a/b?c")

	out, err = run(t, srv, "delete", "a/b?c")
	require.NoError(t, err)
	assert.Equal(t, "deleted a/b?c\n", out)

	_, err = run(t, srv, "get", "a/b?c")
	assert.ErrorContains(t, err, "status=404")
}

func TestUpsertRequiresFlags(t *testing.T) {
	srv := newAPI(t)

	_, err := run(t, srv, "upsert", "p3", "--name", "Widget")
	assert.ErrorContains(t, err, "are required")
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr string
	}{
		{in: "12.99", want: 1299},
		{in: "£3.5", want: 350},
		{in: "0", want: 0},
		{in: "7", want: 700},
		{in: "9.999", wantErr: "more than two decimal places"},
		{in: "-1", wantErr: "must not be negative"},
		{in: "abc", wantErr: "invalid price"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePrice(tt.in)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPence(t *testing.T) {
	assert.Equal(t, "0.00", formatPence(0))
	assert.Equal(t, "0.05", formatPence(5))
	assert.Equal(t, "1234.50", formatPence(123450))
	assert.False(t, strings.Contains(formatPence(100), "e"))
}
