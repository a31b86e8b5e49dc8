package notify

import (
	"attendance-backend/internal/components/assert"
	"attendance-backend/internal/components/chrono"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/db"
	"attendance-backend/internal/reconcile"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	report_dispatcher_flush = "dispatcher.flush"
	report_dispatcher_send  = "dispatcher.send"
	report_dispatcher_user  = "dispatcher.user"
)

// Dispatcher delivers the undelivered notifications stored by reconciliation.
type Dispatcher struct {
	qry   *db.Queries
	sinks []Sink
	time  chrono.TimeAPI
	tel   telemetry.API
}

func NewDispatcher(qry *db.Queries, sinks []Sink, timeAPI chrono.TimeAPI, tel telemetry.API) Dispatcher {
	assert.NotNil(qry, "qry")
	assert.NotNil(timeAPI, "time")
	assert.NotNil(tel, "tel")

	return Dispatcher{
		qry:   qry,
		sinks: sinks,
		time:  timeAPI,
		tel:   telemetry.NewScopedAPI("notify", tel),
	}
}

func toEvent(row db.Notification) reconcile.ChangeEvent {
	id, _ := uuid.Parse(row.ID)
	return reconcile.ChangeEvent{
		ID:            id,
		Username:      row.Username,
		SubjectCode:   row.SubjectCode,
		SubjectName:   row.SubjectName,
		OldPercentage: row.OldPercentage,
		NewPercentage: row.NewPercentage,
		Timestamp:     time.Unix(row.CreatedAt, 0).In(chrono.IST()),
	}
}

// Unread returns the user's undelivered change events, oldest first.
func (d Dispatcher) Unread(ctx context.Context, username string) ([]reconcile.ChangeEvent, error) {
	rows, err := d.qry.ListUndeliveredNotifications(ctx, username)
	if err != nil {
		d.tel.ReportBroken(report_dispatcher_flush, fmt.Errorf("list undelivered: %w", err), username)
		return nil, err
	}
	events := make([]reconcile.ChangeEvent, len(rows))
	for i, row := range rows {
		events[i] = toEvent(row)
	}
	return events, nil
}

// Flush sends one message per user listing all of their undelivered changes to every
// sink. A user's notifications are marked delivered only when every sink accepted the
// message, otherwise they are retried on the next flush. Notifications of users that
// no longer exist or have no email are dropped with a warning. Returns the number of
// notifications delivered.
func (d Dispatcher) Flush(ctx context.Context) (int, error) {
	rows, err := d.qry.ListAllUndeliveredNotifications(ctx)
	if err != nil {
		d.tel.ReportBroken(report_dispatcher_flush, fmt.Errorf("list undelivered: %w", err))
		return 0, err
	}

	// rows are ordered by username
	var groups [][]db.Notification
	for _, row := range rows {
		if len(groups) == 0 || groups[len(groups)-1][0].Username != row.Username {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], row)
	}

	delivered := 0
	var errs []error
	for _, group := range groups {
		n, err := d.deliver(ctx, group)
		delivered += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return delivered, errors.Join(errs...)
}

func (d Dispatcher) deliver(ctx context.Context, group []db.Notification) (int, error) {
	username := group[0].Username

	user, err := d.qry.GetUser(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		d.tel.ReportWarning(report_dispatcher_user, "dropping notifications for unknown user", username, len(group))
		return 0, d.markDelivered(ctx, group)
	}
	if err != nil {
		d.tel.ReportBroken(report_dispatcher_user, err, username)
		return 0, err
	}
	if user.Email == "" {
		d.tel.ReportWarning(report_dispatcher_user, "dropping notifications for user without email", username, len(group))
		return 0, d.markDelivered(ctx, group)
	}

	events := make([]reconcile.ChangeEvent, len(group))
	for i, row := range group {
		events[i] = toEvent(row)
	}
	msg := Message{
		To:      user.Email,
		Subject: Subject,
		Body:    FormatChanges(events),
	}

	for _, sink := range d.sinks {
		err := sink.Send(ctx, msg)
		if err != nil {
			d.tel.ReportWarning(report_dispatcher_send, fmt.Sprintf("%T", sink), username, err)
			return 0, fmt.Errorf("notify %s: %w", username, err)
		}
	}

	err = d.markDelivered(ctx, group)
	if err != nil {
		return 0, err
	}
	d.tel.ReportDebug(report_dispatcher_flush, username, len(group))
	return len(group), nil
}

// markDelivered takes the rows out of the outbox, also used for rows that have no
// one to be delivered to.
func (d Dispatcher) markDelivered(ctx context.Context, group []db.Notification) error {
	now := d.time.Now().Unix()
	for _, row := range group {
		err := d.qry.MarkNotificationDelivered(ctx, db.MarkNotificationDeliveredParams{
			DeliveredAt: sql.NullInt64{Int64: now, Valid: true},
			ID:          row.ID,
		})
		if err != nil {
			d.tel.ReportBroken(report_dispatcher_flush, fmt.Errorf("mark delivered: %w", err), row.ID)
			return err
		}
	}
	return nil
}
