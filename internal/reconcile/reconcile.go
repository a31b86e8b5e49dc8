// Package reconcile compares freshly fetched attendance with the last stored
// snapshot of a user and records drops in attendance.
package reconcile

import (
	"attendance-backend/internal/components/assert"
	"attendance-backend/internal/components/chrono"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/db"
	"attendance-backend/internal/scrapers/srm"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	report_reconciler_reconcile = "reconciler.reconcile"
	report_reconciler_duplicate = "reconciler.duplicate-subject"
)

// ChangeEvent is a drop in a subject's attendance percentage.
type ChangeEvent struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	SubjectCode   string    `json:"subject_code"`
	SubjectName   string    `json:"subject_name"`
	OldPercentage float64   `json:"old_percentage"`
	NewPercentage float64   `json:"new_percentage"`
	Timestamp     time.Time `json:"timestamp"`
}

// Diff returns one event per subject whose percentage in fresh is lower than in old.
// Subjects missing from old have no baseline and produce nothing, as do subjects
// missing from fresh. When fresh lists a subject more than once the first entry is used.
func Diff(username string, old map[string]float64, fresh []srm.AttendanceRecord, now time.Time) []ChangeEvent {
	var events []ChangeEvent
	seen := make(map[string]struct{}, len(fresh))
	for _, record := range fresh {
		if _, dup := seen[record.SubjectCode]; dup {
			continue
		}
		seen[record.SubjectCode] = struct{}{}

		previous, ok := old[record.SubjectCode]
		if !ok || record.Percentage >= previous {
			continue
		}
		events = append(events, ChangeEvent{
			ID:            uuid.New(),
			Username:      username,
			SubjectCode:   record.SubjectCode,
			SubjectName:   record.SubjectName,
			OldPercentage: previous,
			NewPercentage: record.Percentage,
			Timestamp:     now,
		})
	}
	return events
}

// Reconciler applies Diff against the stored snapshots.
type Reconciler struct {
	makeTx db.MakeTx
	time   chrono.TimeAPI
	tel    telemetry.API
}

func NewReconciler(makeTx db.MakeTx, timeAPI chrono.TimeAPI, tel telemetry.API) Reconciler {
	assert.NotNil(makeTx, "makeTx")
	assert.NotNil(timeAPI, "time")
	assert.NotNil(tel, "tel")

	return Reconciler{
		makeTx: makeTx,
		time:   timeAPI,
		tel:    telemetry.NewScopedAPI("reconcile", tel),
	}
}

// Reconcile diffs fresh against the user's snapshot, then in one transaction stores
// the events as undelivered notifications and upserts a snapshot for every subject
// in fresh. Snapshots of subjects missing from fresh are left as they are.
func (r Reconciler) Reconcile(ctx context.Context, username string, fresh []srm.AttendanceRecord) ([]ChangeEvent, error) {
	tx, discard, commit, err := r.makeTx()
	if err != nil {
		r.tel.ReportBroken(report_reconciler_reconcile, fmt.Errorf("begin tx: %w", err), username)
		return nil, err
	}
	defer discard()

	snapshots, err := tx.GetSnapshots(ctx, username)
	if err != nil {
		r.tel.ReportBroken(report_reconciler_reconcile, fmt.Errorf("get snapshots: %w", err), username)
		return nil, err
	}
	old := make(map[string]float64, len(snapshots))
	for _, s := range snapshots {
		old[s.SubjectCode] = s.Percentage
	}

	now := r.time.Now()
	events := Diff(username, old, fresh, now)

	for _, e := range events {
		err = tx.CreateNotification(ctx, db.CreateNotificationParams{
			ID:            e.ID.String(),
			Username:      e.Username,
			SubjectCode:   e.SubjectCode,
			SubjectName:   e.SubjectName,
			OldPercentage: e.OldPercentage,
			NewPercentage: e.NewPercentage,
			CreatedAt:     e.Timestamp.Unix(),
		})
		if err != nil {
			r.tel.ReportBroken(report_reconciler_reconcile, fmt.Errorf("create notification: %w", err), username)
			return nil, err
		}
	}

	written := make(map[string]struct{}, len(fresh))
	for _, record := range fresh {
		if _, dup := written[record.SubjectCode]; dup {
			r.tel.ReportWarning(report_reconciler_duplicate, username, record.SubjectCode)
			continue
		}
		written[record.SubjectCode] = struct{}{}

		err = tx.UpsertSnapshot(ctx, db.UpsertSnapshotParams{
			Username:    username,
			SubjectCode: record.SubjectCode,
			Percentage:  record.Percentage,
			UpdatedAt:   now.Unix(),
		})
		if err != nil {
			r.tel.ReportBroken(report_reconciler_reconcile, fmt.Errorf("upsert snapshot: %w", err), username)
			return nil, err
		}
	}

	err = commit()
	if err != nil {
		r.tel.ReportBroken(report_reconciler_reconcile, fmt.Errorf("commit: %w", err), username)
		return nil, err
	}

	r.tel.ReportDebug(report_reconciler_reconcile, username, len(fresh), len(events))
	return events, nil
}
