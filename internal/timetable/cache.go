// Package timetable keeps the process wide copy of the timetable.
package timetable

import (
	"attendance-backend/internal/components/assert"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/scrapers/srm"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	report_cache_load    = "cache.load"
	report_cache_refresh = "cache.refresh"
	report_cache_persist = "cache.persist"
	report_cache_init    = "cache.init"

	DefaultRetryInterval = 2 * time.Second
)

var ErrNotLoaded = errors.New("timetable has not been loaded yet")

// Fetcher fetches a fresh timetable.
//
// note: fault injection point
type Fetcher interface {
	FetchTimetable(ctx context.Context) (srm.Timetable, error)
}

// Cache holds the last fetched timetable in memory and on disk. Readers never observe
// a partially written timetable, refreshes replace it whole.
type Cache struct {
	path    string
	fetcher Fetcher
	tel     telemetry.API

	current atomic.Pointer[srm.Timetable]
	group   singleflight.Group
}

func NewCache(path string, fetcher Fetcher, tel telemetry.API) *Cache {
	assert.NotEmptyStr(path, "path")
	assert.NotNil(fetcher, "fetcher")
	assert.NotNil(tel, "tel")

	return &Cache{
		path:    path,
		fetcher: fetcher,
		tel:     telemetry.NewScopedAPI("timetable_cache", tel),
	}
}

// Get returns the cached timetable.
func (c *Cache) Get() (srm.Timetable, error) {
	current := c.current.Load()
	if current == nil {
		return srm.Timetable{}, ErrNotLoaded
	}
	return *current, nil
}

// Load reads the cache file. A missing file is reported as os.ErrNotExist.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	var timetable srm.Timetable
	err = json.Unmarshal(data, &timetable)
	if err != nil {
		err = fmt.Errorf("decode %s: %w", c.path, err)
		c.tel.ReportWarning(report_cache_load, err)
		return err
	}
	c.current.Store(&timetable)
	c.tel.ReportDebug(report_cache_load, c.path, len(timetable.Days))
	return nil
}

// Refresh fetches the timetable, writes it to disk, then swaps it in. Concurrent calls
// share one fetch, which is not cancelled when one of them gives up. Fetcher bounds its
// own duration.
func (c *Cache) Refresh(ctx context.Context) (srm.Timetable, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("refresh", func() (any, error) {
		timetable, err := c.fetcher.FetchTimetable(flightCtx)
		if err != nil {
			c.tel.ReportWarning(report_cache_refresh, err)
			return srm.Timetable{}, err
		}
		err = c.persist(timetable)
		if err != nil {
			// the fresh copy is still served from memory
			c.tel.ReportBroken(report_cache_persist, err, c.path)
		}
		c.current.Store(&timetable)
		return timetable, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return srm.Timetable{}, res.Err
		}
		return res.Val.(srm.Timetable), nil
	case <-ctx.Done():
		return srm.Timetable{}, ctx.Err()
	}
}

func (c *Cache) persist(timetable srm.Timetable) error {
	data, err := json.MarshalIndent(timetable, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}

// Init loads the cache file, or when there is none, fetches the timetable retrying
// every interval until it succeeds or ctx is done. Invalid credentials are not retried.
func (c *Cache) Init(ctx context.Context, interval time.Duration) error {
	err := c.Load()
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		c.tel.ReportWarning(report_cache_init, "ignoring unreadable cache", err)
	}

	for {
		_, err := c.Refresh(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, srm.ErrInvalidCredentials) {
			c.tel.ReportBroken(report_cache_init, err)
			return err
		}
		c.tel.ReportWarning(report_cache_init, "retrying", interval.String(), err)

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ctx.Err(), err)
		}
	}
}
