// Package app wires configuration into a running attendance engine. It is shared by
// the server and the CLI.
package app

import (
	"attendance-backend/internal/notify"
	"attendance-backend/internal/scrapers/srm"
	"attendance-backend/internal/service"
	"attendance-backend/pkg/configutil"
	"attendance-backend/pkg/migrations"
	"time"
)

// EnvPrefix prefixes every environment override, e.g. SRM_PORTAL_PASSWORD.
const EnvPrefix = "SRM"

type PortalConfig struct {
	BaseUrl            string `json:"base_url" envconfig:"BASE_URL"`
	Username           string `json:"username" envconfig:"USERNAME"`
	Password           string `json:"password" envconfig:"PASSWORD"`
	MaxCaptchaAttempts int    `json:"max_captcha_attempts" envconfig:"MAX_CAPTCHA_ATTEMPTS"`
	// RequestsPerSecond defaults to 4, a negative value disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	CloudflareBypass  bool    `json:"cloudflare_bypass" envconfig:"CLOUDFLARE_BYPASS"`
	TimeoutSeconds    int     `json:"timeout_seconds" envconfig:"TIMEOUT_SECONDS"`
	// OcrLanguages are passed to tesseract, empty means "eng".
	OcrLanguages []string `json:"ocr_languages" envconfig:"OCR_LANGUAGES"`
	OcrWhitelist string   `json:"ocr_whitelist" envconfig:"OCR_WHITELIST"`
	// DumpDir receives every portal exchange when set, see restydump.
	DumpDir string `json:"dump_dir" envconfig:"DUMP_DIR"`
	// BreakerFailures consecutive outages stop portal calls for BreakerCooldownSeconds.
	BreakerFailures        uint32 `json:"breaker_failures" envconfig:"BREAKER_FAILURES"`
	BreakerCooldownSeconds int    `json:"breaker_cooldown_seconds" envconfig:"BREAKER_COOLDOWN_SECONDS"`
}

type Config struct {
	Portal              PortalConfig        `json:"portal" envconfig:"PORTAL"`
	Database            migrations.Database `json:"database" envconfig:"DATABASE"`
	TimetableCache      string              `json:"timetable_cache" envconfig:"TIMETABLE_CACHE"`
	Port                int                 `json:"port" envconfig:"PORT"`
	FetchTimeoutSeconds int                 `json:"fetch_timeout_seconds" envconfig:"FETCH_TIMEOUT_SECONDS"`
	// PeriodConcurrency caps concurrent month fetches, 0 means no cap.
	PeriodConcurrency int               `json:"period_concurrency" envconfig:"PERIOD_CONCURRENCY"`
	ReconcileCron     string            `json:"reconcile_cron" envconfig:"RECONCILE_CRON"`
	Smtp              notify.SmtpConfig `json:"smtp" envconfig:"SMTP"`
	WebhookUrl        string            `json:"webhook_url" envconfig:"WEBHOOK_URL"`
	// SecretKey seals stored portal passwords (base64, 32 bytes). Passwords are stored
	// as they are when it is empty.
	SecretKey string `json:"secret_key" envconfig:"SECRET_KEY"`
}

func DefaultConfig() Config {
	return Config{
		Portal: PortalConfig{
			BaseUrl:                srm.DefaultBaseUrl,
			MaxCaptchaAttempts:     srm.DefaultMaxCaptchaAttempts,
			RequestsPerSecond:      4,
			TimeoutSeconds:         30,
			OcrWhitelist:           "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789",
			BreakerFailures:        5,
			BreakerCooldownSeconds: 60,
		},
		Database:            migrations.Database{File: "state.db"},
		TimetableCache:      "cache/timetable.json",
		Port:                8000,
		FetchTimeoutSeconds: 120,
		ReconcileCron:       "@every 30m",
		Smtp:                notify.SmtpConfig{Port: 587},
	}
}

// LoadConfig reads name (and its .local override) over the defaults, then applies
// environment overrides.
func LoadConfig(name string) (Config, error) {
	cfg, err := configutil.ReadWithEnv[Config](name, EnvPrefix)
	if err != nil {
		return Config{}, err
	}
	return withDefaults(cfg, DefaultConfig()), nil
}

func withDefaults(cfg, defaults Config) Config {
	if cfg.Portal.BaseUrl == "" {
		cfg.Portal.BaseUrl = defaults.Portal.BaseUrl
	}
	if cfg.Portal.MaxCaptchaAttempts <= 0 {
		cfg.Portal.MaxCaptchaAttempts = defaults.Portal.MaxCaptchaAttempts
	}
	if cfg.Portal.RequestsPerSecond == 0 {
		cfg.Portal.RequestsPerSecond = defaults.Portal.RequestsPerSecond
	}
	if cfg.Portal.TimeoutSeconds <= 0 {
		cfg.Portal.TimeoutSeconds = defaults.Portal.TimeoutSeconds
	}
	if cfg.Portal.OcrWhitelist == "" {
		cfg.Portal.OcrWhitelist = defaults.Portal.OcrWhitelist
	}
	if cfg.Portal.BreakerFailures == 0 {
		cfg.Portal.BreakerFailures = defaults.Portal.BreakerFailures
	}
	if cfg.Portal.BreakerCooldownSeconds <= 0 {
		cfg.Portal.BreakerCooldownSeconds = defaults.Portal.BreakerCooldownSeconds
	}
	if cfg.Database.File == "" && cfg.Database.Url == "" {
		cfg.Database = defaults.Database
	}
	if cfg.TimetableCache == "" {
		cfg.TimetableCache = defaults.TimetableCache
	}
	if cfg.Port <= 0 {
		cfg.Port = defaults.Port
	}
	if cfg.FetchTimeoutSeconds <= 0 {
		cfg.FetchTimeoutSeconds = defaults.FetchTimeoutSeconds
	}
	if cfg.ReconcileCron == "" {
		cfg.ReconcileCron = defaults.ReconcileCron
	}
	if cfg.Smtp.Port <= 0 {
		cfg.Smtp.Port = defaults.Smtp.Port
	}
	return cfg
}

func (c Config) credentials() srm.Credentials {
	return srm.Credentials{Identifier: c.Portal.Username, Secret: c.Portal.Password}
}

func (c Config) fetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c Config) breaker() service.BreakerOptions {
	return service.BreakerOptions{
		Failures: c.Portal.BreakerFailures,
		Cooldown: time.Duration(c.Portal.BreakerCooldownSeconds) * time.Second,
	}
}
