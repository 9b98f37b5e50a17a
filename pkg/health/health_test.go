package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type staticChecker struct {
	name string
	err  error
}

func (c staticChecker) Name() string { return c.name }
func (c staticChecker) Check(ctx context.Context) error { return c.err }

type runner bool

func (r runner) Running() bool { return bool(r) }

func TestCheckerRegistry_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		want     Status
	}{
		{
			name:     "no checkers",
			checkers: nil,
			want:     StatusHealthy,
		},
		{
			name:     "all healthy",
			checkers: []Checker{staticChecker{name: "a"}, staticChecker{name: "b"}},
			want:     StatusHealthy,
		},
		{
			name:     "degraded",
			checkers: []Checker{staticChecker{name: "a"}, staticChecker{name: "b", err: Degraded(errors.New("idle"))}},
			want:     StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			checkers: []Checker{
				staticChecker{name: "a", err: errors.New("down")},
				staticChecker{name: "b", err: Degraded(errors.New("idle"))},
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.checkers {
				r.Register(c)
			}

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.checkers))
		})
	}
}

func TestReporterChecker(t *testing.T) {
	r := NewCheckerRegistry()
	r.Register(NewReporterChecker(runner(false)))

	h := r.Check(context.Background())
	assert.Equal(t, StatusDegraded, h.Status)
	assert.Equal(t, "reporter is not running", h.Checks["reporter"].Message)

	assert.NoError(t, NewReporterChecker(runner(true)).Check(context.Background()))
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checker := NewRedisChecker(client)
	assert.Equal(t, "redis", checker.Name())
	assert.NoError(t, checker.Check(context.Background()))

	mr.Close()
	assert.Error(t, checker.Check(context.Background()))
}

func TestDegradedNil(t *testing.T) {
	assert.NoError(t, Degraded(nil))
}
