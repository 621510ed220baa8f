package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/productsync/internal/interfaces/http/dto"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		db         DatabasePinger
		wantStatus int
		wantDB     string
	}{
		{
			name:       "database up",
			db:         pingerFunc(func(context.Context) error { return nil }),
			wantStatus: http.StatusOK,
			wantDB:     "up",
		},
		{
			name:       "database down",
			db:         pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
			wantStatus: http.StatusServiceUnavailable,
			wantDB:     "down",
		},
		{
			name:       "no database",
			db:         nil,
			wantStatus: http.StatusServiceUnavailable,
			wantDB:     "down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, "1.2.3")
			c, w := newTestContext("")

			h.Health(c)

			require.Equal(t, tt.wantStatus, w.Code)
			var resp dto.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantDB, resp.Database)
			assert.Equal(t, "1.2.3", resp.Version)
			assert.False(t, resp.Timestamp.IsZero())
		})
	}
}

func TestHealthHandler_PingHasDeadline(t *testing.T) {
	var hasDeadline bool
	h := NewHealthHandler(pingerFunc(func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}), "")
	c, _ := newTestContext("")

	h.Health(c)

	assert.True(t, hasDeadline)
}
