// Package portal builds the production portal client, captchas are solved with
// tesseract.
package portal

import (
	"attendance-backend/internal/app"
	"attendance-backend/internal/captcha"
	"attendance-backend/internal/captcha/tesseract"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/scrapers/srm"
	"attendance-backend/pkg/restydump"
	"fmt"
	"time"
)

func New(cfg app.PortalConfig, periodConcurrency int, tel telemetry.API) (srm.Portal, error) {
	engine := tesseract.Engine{
		Languages: cfg.OcrLanguages,
		Whitelist: cfg.OcrWhitelist,
	}
	solver := captcha.NewSolver(engine, tel)
	auth := srm.NewAuthenticator(solver, cfg.MaxCaptchaAttempts, tel)

	options := srm.SessionOptions{
		BaseUrl:           cfg.BaseUrl,
		Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.RequestsPerSecond,
		CloudflareBypass:  cfg.CloudflareBypass,
	}
	if cfg.DumpDir != "" {
		output, err := restydump.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			return srm.Portal{}, fmt.Errorf("portal dump: %w", err)
		}
		options.Dump = output
	}
	return srm.NewPortal(options, auth, periodConcurrency, tel), nil
}
