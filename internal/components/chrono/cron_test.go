package chrono

import (
	"context"
	"testing"

	"bakpdlbot/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestScheduleRejectsBadSchedule(t *testing.T) {
	tel := telemetry.NewRecorder()
	s := NewScheduler(tel)
	defer s.Stop()

	err := s.Schedule(context.Background(), "every tuesday", "cache.prune", func(context.Context) error {
		return nil
	})
	require.ErrorContains(t, err, "cache.prune")

	err = s.Schedule(context.Background(), "@hourly", "cache.prune", func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestCronLoggerPairs(t *testing.T) {
	tel := telemetry.NewRecorder()
	l := cronLogger{tel: tel}

	l.Info("wake", "now", 1, "entries", 2, "dangling")
	reports := tel.Reports(telemetry.SEVERITY_DEBUG, "cron: wake")
	require.Len(t, reports, 1)
	require.Equal(t, []any{"now=1", "entries=2"}, reports[0].Params)
}
