// Package config loads the settings shared by the bakpdlbot binaries.
package config

import (
	"context"
	"errors"
	"os"
	"time"

	"bakpdlbot/internal/components/chrono"
	"bakpdlbot/internal/components/telemetry"
	"bakpdlbot/internal/httpcache"
	"bakpdlbot/internal/zwiftpower"
	"bakpdlbot/lib/configutil"
)

const (
	EnvZwiftUser    = "ZWIFT_USER"
	EnvZwiftPass    = "ZWIFT_PASS"
	EnvTeamID       = "ZP_TEAM_ID"
	EnvDiscordToken = "DISCORD_TOKEN"
)

type Config struct {
	ZwiftUser    string           `json:"zwift_user"`
	ZwiftPass    string           `json:"zwift_pass"`
	TeamID       int              `json:"team_id"`
	DiscordToken string           `json:"discord_token"`
	SleepSeconds float64          `json:"sleep_seconds"`
	Cache        httpcache.Config `json:"cache"`
}

// Load reads `name` (and its .local override) if it exists, then loads the dotenv files and
// lets the environment override the file.
func Load(name string, envFiles ...string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	err = configutil.LoadEnv(envFiles...)
	if err != nil {
		return Config{}, err
	}

	configutil.EnvString(&cfg.ZwiftUser, EnvZwiftUser)
	configutil.EnvString(&cfg.ZwiftPass, EnvZwiftPass)
	configutil.EnvInt(&cfg.TeamID, EnvTeamID)
	configutil.EnvString(&cfg.DiscordToken, EnvDiscordToken)
	return cfg, nil
}

// Sleep is the configured polite delay, fallback if unset.
func (c Config) Sleep(fallback time.Duration) time.Duration {
	if c.SleepSeconds <= 0 {
		return fallback
	}
	return time.Duration(c.SleepSeconds * float64(time.Second))
}

// Session is a scraper together with the cache it writes to.
type Session struct {
	Scraper *zwiftpower.Scraper
	Cache   httpcache.Store
}

func (s Session) Close() error {
	return s.Cache.Close()
}

// OpenSession opens the configured cache and creates a scraper on top of it.
func (c Config) OpenSession(ctx context.Context, tel telemetry.API, defaultSleep time.Duration) (Session, error) {
	clock := chrono.NewStandardTime()
	store, err := httpcache.Open(ctx, c.Cache, clock)
	if err != nil {
		return Session{}, err
	}

	scraper, err := zwiftpower.NewScraper(zwiftpower.Options{
		Username:    c.ZwiftUser,
		Password:    c.ZwiftPass,
		Sleep:       c.Sleep(defaultSleep),
		Cache:       store,
		CacheExpiry: c.Cache.Expiry(),
		Telemetry:   tel,
		Time:        clock,
	})
	if err != nil {
		store.Close()
		return Session{}, err
	}
	return Session{Scraper: scraper, Cache: store}, nil
}
