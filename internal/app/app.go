package app

import (
	"attendance-backend/internal/components/chrono"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/db"
	"attendance-backend/internal/notify"
	"attendance-backend/internal/secrets"
	"attendance-backend/internal/service"
	"attendance-backend/pkg/migrations"
	"database/sql"
	"fmt"
)

const (
	report_app_open = "app.open"
)

// App is an engine together with the database it owns.
type App struct {
	Config  Config
	DB      *sql.DB
	Service *service.Service
}

// Sinks returns the notification sinks enabled by cfg. Email needs an smtp server
// and a sender address, the webhook needs a url.
func Sinks(cfg Config, tel telemetry.API) []notify.Sink {
	var sinks []notify.Sink
	if cfg.Smtp.Server != "" && cfg.Smtp.EmailAddress != "" {
		sinks = append(sinks, notify.NewEmailSink(cfg.Smtp))
	}
	if cfg.WebhookUrl != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.WebhookUrl, tel))
	}
	return sinks
}

// Open migrates the database and builds the engine on top of portal.
func Open(cfg Config, portal service.Portal, tel telemetry.API) (App, error) {
	sealer, err := secrets.NewSealer(cfg.SecretKey)
	if err != nil {
		return App{}, fmt.Errorf("secret key: %w", err)
	}
	if !sealer.Enabled() {
		tel.ReportWarning(report_app_open, "no secret_key configured, user passwords are stored unsealed")
	}

	database, err := migrations.OpenAndMigrateDB(db.Schema, cfg.Database.DSN())
	if err != nil {
		return App{}, fmt.Errorf("open database: %w", err)
	}

	svc := service.New(
		portal,
		db.New(database),
		db.NewMakeTx(database),
		service.Options{
			Credentials:    cfg.credentials(),
			FetchTimeout:   cfg.fetchTimeout(),
			TimetableCache: cfg.TimetableCache,
			Sinks:          Sinks(cfg, tel),
			Breaker:        cfg.breaker(),
			Sealer:         sealer,
		},
		chrono.NewStandardTime(),
		tel,
	)
	return App{Config: cfg, DB: database, Service: svc}, nil
}

func (a App) Close() error {
	return a.DB.Close()
}
