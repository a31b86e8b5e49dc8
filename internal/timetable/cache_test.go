package timetable

import (
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/scrapers/srm"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls    atomic.Int32
	failures int32
	err      error
	delay    time.Duration
	day      string
}

func (f *fakeFetcher) FetchTimetable(ctx context.Context) (srm.Timetable, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return srm.Timetable{}, ctx.Err()
		}
	}
	if n <= f.failures {
		return srm.Timetable{}, f.err
	}
	return srm.Timetable{
		Days:    []srm.TimetableDay{{Day: f.day, Slots: []srm.Slot{{Time: "08:00-08:50", SubjectCode: "21CSC204J"}}}},
		Courses: []srm.Course{{Code: "21CSC204J", Name: "Design and Analysis of Algorithms"}},
	}, nil
}

func cachePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "cache", "timetable.json")
}

func TestCacheRefreshPersists(t *testing.T) {
	path := cachePath(t)
	fetcher := &fakeFetcher{day: "Day 1"}
	cache := NewCache(path, fetcher, telemetry.NewTestAPI(t))

	_, err := cache.Get()
	require.ErrorIs(t, err, ErrNotLoaded)

	fresh, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Day 1", fresh.Days[0].Day)

	cached, err := cache.Get()
	require.NoError(t, err)
	require.Equal(t, fresh, cached)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk srm.Timetable
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Equal(t, fresh, onDisk)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")

	reloaded := NewCache(path, &fakeFetcher{}, telemetry.NewTestAPI(t))
	require.NoError(t, reloaded.Load())
	fromFile, err := reloaded.Get()
	require.NoError(t, err)
	require.Equal(t, fresh, fromFile)
}

func TestCacheRefreshFailureKeepsPrevious(t *testing.T) {
	fetcher := &fakeFetcher{day: "Day 1"}
	cache := NewCache(cachePath(t), fetcher, telemetry.NewTestAPI(t))
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	fetcher.failures = 100
	fetcher.err = srm.ErrPortalUnavailable
	_, err = cache.Refresh(context.Background())
	require.ErrorIs(t, err, srm.ErrPortalUnavailable)

	cached, err := cache.Get()
	require.NoError(t, err)
	require.Equal(t, "Day 1", cached.Days[0].Day)
}

func TestCacheConcurrentRefreshesCoalesce(t *testing.T) {
	fetcher := &fakeFetcher{day: "Day 1", delay: 100 * time.Millisecond}
	cache := NewCache(cachePath(t), fetcher, telemetry.NewTestAPI(t))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Refresh(context.Background())
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Less(t, fetcher.calls.Load(), int32(8))
}

func TestCacheRefreshSurvivesCallerCancel(t *testing.T) {
	fetcher := &fakeFetcher{day: "Day 1", delay: 200 * time.Millisecond}
	cache := NewCache(cachePath(t), fetcher, telemetry.NewTestAPI(t))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cache.Refresh(ctx)
		first <- err
	}()
	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := cache.Refresh(context.Background())
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	require.ErrorIs(t, <-first, context.Canceled)
	require.NoError(t, <-second)
	require.Equal(t, int32(1), fetcher.calls.Load())

	cached, err := cache.Get()
	require.NoError(t, err)
	require.Equal(t, "Day 1", cached.Days[0].Day)
}

func TestCacheInit(t *testing.T) {
	testCases := []struct {
		name     string
		failures int32
		err      error
		timeout  time.Duration
		expected error
		calls    int32
	}{
		{name: "fetches when no file", calls: 1},
		{name: "retries while unavailable", failures: 2, err: srm.ErrPortalUnavailable, calls: 3},
		{name: "gives up on invalid credentials", failures: 100, err: srm.ErrInvalidCredentials, expected: srm.ErrInvalidCredentials, calls: 1},
		{
			name:     "stops when context ends",
			failures: 1000,
			err:      srm.ErrPortalUnavailable,
			timeout:  50 * time.Millisecond,
			expected: context.DeadlineExceeded,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			fetcher := &fakeFetcher{day: "Day 1", failures: testCase.failures, err: testCase.err}
			cache := NewCache(cachePath(t), fetcher, telemetry.NewTestAPI(t))

			ctx := context.Background()
			if testCase.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, testCase.timeout)
				defer cancel()
			}

			err := cache.Init(ctx, 5*time.Millisecond)
			if testCase.expected != nil {
				require.True(t, errors.Is(err, testCase.expected), "got %v", err)
				if testCase.calls > 0 {
					require.Equal(t, testCase.calls, fetcher.calls.Load())
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, testCase.calls, fetcher.calls.Load())
			_, err = cache.Get()
			require.NoError(t, err)
		})
	}
}

func TestCacheInitPrefersFile(t *testing.T) {
	path := cachePath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
	require.NoError(t, os.WriteFile(path, []byte(`{"days": [{"day": "From File", "slots": []}], "courses": []}`), 0666))

	fetcher := &fakeFetcher{day: "Fetched"}
	cache := NewCache(path, fetcher, telemetry.NewTestAPI(t))
	require.NoError(t, cache.Init(context.Background(), time.Millisecond))
	require.Equal(t, int32(0), fetcher.calls.Load())

	cached, err := cache.Get()
	require.NoError(t, err)
	require.Equal(t, "From File", cached.Days[0].Day)
}
