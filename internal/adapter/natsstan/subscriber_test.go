package natsstan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/catalog-service/internal/adapter/memory"
	"github.com/example/catalog-service/internal/domain"
	"github.com/example/catalog-service/internal/logger"
	"github.com/example/catalog-service/internal/usecase"
)

func TestDeliver(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantAck   bool
		wantLevel zapcore.Level
	}{
		{name: "processed", err: nil, wantAck: true, wantLevel: zapcore.DebugLevel},
		{name: "validation error is dropped", err: usecase.ErrMissingFields, wantAck: true, wantLevel: zapcore.WarnLevel},
		{name: "field error is dropped", err: &domain.ValidationError{Field: domain.FieldName, Message: "bad"}, wantAck: true, wantLevel: zapcore.WarnLevel},
		{name: "storage error is redelivered", err: errors.New("db down"), wantAck: false, wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			ctx := logger.ToContext(context.Background(), zap.New(core))

			var got []byte
			ack := deliver(ctx, []byte("payload"), func(_ context.Context, raw []byte) error {
				got = raw
				return tt.err
			})

			assert.Equal(t, tt.wantAck, ack)
			assert.Equal(t, []byte("payload"), got)
			if assert.Equal(t, 1, logs.Len()) {
				assert.Equal(t, tt.wantLevel, logs.All()[0].Level)
			}
		})
	}
}

func TestDeliver_ProcessIncomingDevice(t *testing.T) {
	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	repo := memory.NewDeviceRepo()
	uc := usecase.ProcessIncomingDevice{Upsert: usecase.UpsertDevice{Repo: repo, Now: func() time.Time { return at }}}
	ctx := logger.ToContext(context.Background(), zap.NewNop())

	assert.True(t, deliver(ctx, []byte(`{"id":"p1","name":"Widget","pricePence":100,"description":"d"}`), uc.Execute))
	assert.True(t, deliver(ctx, []byte(`{"id":"p2","name":"Widget"}`), uc.Execute))
	assert.True(t, deliver(ctx, []byte(`not json`), uc.Execute))

	got, ok, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, at, got.UpdatedAt)
	assert.Equal(t, 1, repo.Len())
}
