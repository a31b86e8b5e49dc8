package main

import (
	"attendance-backend/internal/app"
	"attendance-backend/internal/components/chrono"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/service"
	"context"
	"fmt"
)

const (
	report_daemon_reconcile = "daemon.reconcile"
)

// StartDaemons schedules the reconciliation pass, it stops with ctx.
func StartDaemons(ctx context.Context, cfg app.Config, svc *service.Service, tel telemetry.API) error {
	tel = telemetry.NewScopedAPI("daemons", tel)
	cron := chrono.NewStandardCron(ctx, tel)

	err := cron.Cron(cfg.ReconcileCron, func() {
		summary, err := svc.ReconcileAll(ctx)
		if err != nil {
			tel.ReportBroken(report_daemon_reconcile, err)
			return
		}
		tel.ReportDebug(
			report_daemon_reconcile,
			"users", summary.Users,
			"failed", summary.Failed,
			"events", summary.Events,
			"delivered", summary.Delivered,
		)
	})
	if err != nil {
		return fmt.Errorf("schedule reconcile '%s': %w", cfg.ReconcileCron, err)
	}
	return nil
}
