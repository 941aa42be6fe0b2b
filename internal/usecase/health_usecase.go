package usecase

import (
	"context"
	"time"
)

const healthCheckTimeout = 2 * time.Second

type HealthUsecase interface {
	Check(ctx context.Context) (map[string]string, bool)
}

// Pinger is satisfied by *pgxpool.Pool and by the redis health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type healthUsecase struct {
	deps map[string]Pinger
}

// NewHealthUsecase reports the status of each named dependency. Nil entries
// are reported as disabled.
func NewHealthUsecase(deps map[string]Pinger) HealthUsecase {
	return &healthUsecase{deps: deps}
}

func (u *healthUsecase) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status := map[string]string{"status": "ok"}
	healthy := true
	for name, dep := range u.deps {
		if dep == nil {
			status[name] = "disabled"
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			status[name] = "unavailable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		status["status"] = "degraded"
	}
	return status, healthy
}
