package usecase_test

import (
	"context"
	"errors"
	"testing"

	"career-coach-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheck(t *testing.T) {
	ok := usecase.PingFunc(func(context.Context) error { return nil })
	down := usecase.PingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all dependencies up", func(t *testing.T) {
		status, healthy := usecase.NewHealthUsecase(map[string]usecase.Pinger{
			"database": ok,
			"redis":    nil,
		}).Check(context.Background())

		assert.True(t, healthy)
		assert.Equal(t, map[string]string{"status": "ok", "database": "ok", "redis": "disabled"}, status)
	})

	t.Run("database down", func(t *testing.T) {
		status, healthy := usecase.NewHealthUsecase(map[string]usecase.Pinger{
			"database": down,
			"redis":    ok,
		}).Check(context.Background())

		assert.False(t, healthy)
		assert.Equal(t, "degraded", status["status"])
		assert.Equal(t, "unavailable", status["database"])
		assert.Equal(t, "ok", status["redis"])
	})
}
