package service

import (
	"attendance-backend/internal/db"
	"attendance-backend/internal/reconcile"
	"attendance-backend/internal/scrapers/srm"
	"context"
	"fmt"
)

const (
	report_service_reconcile_user = "service.reconcile-user"
	report_service_reconcile_all  = "service.reconcile-all"
	report_service_flush          = "service.flush-notifications"
)

// ReconcileSummary is the outcome of one pass over every user.
type ReconcileSummary struct {
	Users     int `json:"users"`
	Failed    int `json:"failed"`
	Events    int `json:"events"`
	Delivered int `json:"delivered"`
}

// ReconcileUser fetches the user's attendance with their own credentials and
// reconciles it against their snapshot.
func (s *Service) ReconcileUser(ctx context.Context, user db.User) ([]reconcile.ChangeEvent, error) {
	secret, err := s.sealer.Open(user.Password)
	if err != nil {
		return nil, fmt.Errorf("open password of %s: %w", user.Username, err)
	}
	creds := srm.Credentials{Identifier: user.Username, Secret: secret}
	attendance, err := s.FetchAttendanceFor(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Reconcile(ctx, user.Username, attendance.Courses)
}

// ReconcileAll reconciles every stored user and then delivers pending notifications.
// A failing user is reported and skipped.
func (s *Service) ReconcileAll(ctx context.Context) (ReconcileSummary, error) {
	users, err := s.qry.ListUsers(ctx)
	if err != nil {
		s.tel.ReportBroken(report_service_reconcile_all, fmt.Errorf("list users: %w", err))
		return ReconcileSummary{}, err
	}

	summary := ReconcileSummary{Users: len(users)}
	for _, user := range users {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		events, err := s.ReconcileUser(ctx, user)
		if err != nil {
			summary.Failed++
			s.tel.ReportWarning(report_service_reconcile_user, user.Username, err)
			continue
		}
		summary.Events += len(events)
	}

	summary.Delivered, err = s.FlushNotifications(ctx)
	if err != nil {
		return summary, err
	}
	s.tel.ReportDebug(report_service_reconcile_all, summary.Users, summary.Failed, summary.Events, summary.Delivered)
	return summary, nil
}

// FlushNotifications delivers every undelivered notification.
func (s *Service) FlushNotifications(ctx context.Context) (int, error) {
	delivered, err := s.dispatcher.Flush(ctx)
	if err != nil {
		s.tel.ReportWarning(report_service_flush, err)
	}
	return delivered, err
}

// Unread lists the user's undelivered change events.
func (s *Service) Unread(ctx context.Context, username string) ([]reconcile.ChangeEvent, error) {
	return s.dispatcher.Unread(ctx, username)
}
