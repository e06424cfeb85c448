package commands

import (
	"fmt"

	"arena-sheets/internal/chrono"
	"arena-sheets/internal/notify"
	"arena-sheets/internal/report"
	"arena-sheets/internal/sheets"
	"arena-sheets/internal/store"
	"arena-sheets/lib/configutil"
)

type ArenaConfig struct {
	// BaseUrl is the root of the Arena portal, ex. https://arena.example.org
	BaseUrl          string `json:"base_url"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`

	RequestsPerSecond float64 `json:"requests_per_second"`
}

type GoogleConfig struct {
	sheets.Credentials
	TemplateSpreadsheetID string `json:"template_spreadsheet_id"`

	RequestsPerSecond float64 `json:"requests_per_second"`
}

type Config struct {
	Arena    ArenaConfig       `json:"arena"`
	Google   GoogleConfig      `json:"google"`
	Database store.Config      `json:"database"`
	Smtp     notify.SmtpConfig `json:"smtp"`
	// Timezone is an IANA location name, every Sunday is computed in it.
	Timezone string `json:"timezone"`

	IncludeInactive    bool `json:"include_inactive"`
	RequireCurrentWeek bool `json:"require_current_week"`
	// KeepSnapshots is how many exports of each kind are kept per class.
	KeepSnapshots int                  `json:"keep_snapshots"`
	ClassSettings report.SettingsTable `json:"class_settings"`
}

func defaultConfig() Config {
	return Config{
		Database: store.Config{File: store.DefaultFile},
		Smtp:     notify.SmtpConfig{Port: 587},
		Timezone: chrono.DefaultLocation,
	}
}

func loadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	return configutil.WithDefaults(cfg, defaultConfig())
}
