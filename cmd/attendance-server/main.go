package main

import (
	"attendance-backend/internal/app"
	"attendance-backend/internal/app/portal"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/httpapi"
	"attendance-backend/internal/timetable"
	"attendance-backend/pkg/serviceutil"
	"flag"
	"log/slog"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "The config file to read.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(*verbose)
	if *verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}
	tel := telemetry.SlogAPI{}
	telemetry.InstrumentPerfStats(ctx, tel)

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	if *verbose && cfg.Portal.DumpDir == "" {
		cfg.Portal.DumpDir = ".dev/resty/srm"
	}
	srmPortal, err := portal.New(cfg.Portal, cfg.PeriodConcurrency, tel)
	if err != nil {
		serviceutil.Fatal("init portal", err)
	}
	application, err := app.Open(cfg, srmPortal, tel)
	if err != nil {
		serviceutil.Fatal("init engine", err)
	}
	defer application.Close()

	go func() {
		err := application.Service.InitTimetable(ctx, timetable.DefaultRetryInterval)
		if err != nil {
			slog.Warn("timetable cache not loaded", "err", err)
		}
	}()

	err = StartDaemons(ctx, cfg, application.Service, tel)
	if err != nil {
		serviceutil.Fatal("start daemons", err)
	}

	err = serviceutil.StartHttpServer(ctx, cfg.Port, httpapi.NewHandler(application.Service, tel))
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
