package chrono

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// discard is used instead of a test logger, cron logs from its own goroutine after
// a test may have returned.
type discard struct{}

func (discard) ReportBroken(string, ...any)  {}
func (discard) ReportWarning(string, ...any) {}
func (discard) ReportDebug(string, ...any)   {}
func (discard) ReportCount(string, int64)    {}

func TestIST(t *testing.T) {
	instant := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	_, offset := instant.In(IST()).Zone()
	require.Equal(t, 5*60*60+30*60, offset)
}

func TestFixedTime(t *testing.T) {
	instant := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	clock := FixedTime(instant)
	require.True(t, clock.Now().Equal(instant))
	require.Equal(t, IST(), clock.Now().Location())
	require.True(t, clock.Now().Equal(clock.Now()))
}

func TestCronRejectsBadSpec(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cron := NewStandardCron(ctx, discard{})
	require.Error(t, cron.Cron("every half hour", func() {}))
}

func TestCronRecoversFromPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int64
	cron := NewStandardCron(ctx, discard{})
	err := cron.Cron("@every 1s", func() {
		runs.Add(1)
		panic("job failed")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
}
