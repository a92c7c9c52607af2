package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bakpdlbot/internal/bot"
	"bakpdlbot/internal/components/chrono"
	"bakpdlbot/internal/components/telemetry"
	"bakpdlbot/internal/config"
	"bakpdlbot/internal/httpcache"
	"bakpdlbot/internal/zwiftracing"
	"bakpdlbot/lib/serviceutil"

	"github.com/spf13/cobra"
)

const defaultSleep = time.Second

const report_cache_prune = "cache.prune"

var (
	zwiftUser string
	zwiftPass string
	cacheDSN  string
	sleep     time.Duration
)

func init() {
	flags := runCmd.Flags()
	flags.StringVar(&zwiftUser, "zwift-user", "", "Overrides "+config.EnvZwiftUser+" (supports .env).")
	flags.StringVar(&zwiftPass, "zwift-pass", "", "Overrides "+config.EnvZwiftPass+" (supports .env).")
	flags.StringVar(&cacheDSN, "cache", "", "Overrides the cache dsn (a sqlite path, libsql:// url or memory:).")
	flags.DurationVar(&sleep, "sleep", 0, "Delay after every uncached request (default 1s).")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connects to discord and answers commands until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)
		ctx := cmd.Context()

		otel, err := telemetry.SetupFromEnv(ctx, "bakpdlbot")
		if err != nil {
			slog.Warn("telemetry export disabled", "err", err)
		} else {
			defer otel.Shutdown(context.Background())
		}

		err = run(ctx)
		if err != nil {
			serviceutil.Fatal("bot stopped", err)
		}
	},
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if zwiftUser != "" {
		cfg.ZwiftUser = zwiftUser
	}
	if zwiftPass != "" {
		cfg.ZwiftPass = zwiftPass
	}
	if cacheDSN != "" {
		cfg.Cache.DSN = cacheDSN
	}
	if sleep > 0 {
		cfg.SleepSeconds = sleep.Seconds()
	}
	if cfg.DiscordToken == "" {
		return errors.New(config.EnvDiscordToken + " is not set")
	}
	if cfg.TeamID == 0 {
		return errors.New(config.EnvTeamID + " is not set")
	}

	tel := telemetry.SlogAPI{}
	stopPerfStats, err := telemetry.InstrumentPerfStats(tel)
	if err != nil {
		return err
	}
	defer stopPerfStats()

	session, err := cfg.OpenSession(ctx, tel, defaultSleep)
	if err != nil {
		return err
	}
	defer session.Close()

	if store, ok := session.Cache.(*httpcache.SQLiteStore); ok {
		scheduler := chrono.NewScheduler(tel)
		defer scheduler.Stop()
		err = scheduler.Schedule(ctx, "@hourly", report_cache_prune, func(ctx context.Context) error {
			pruned, err := store.Prune(ctx)
			if err != nil {
				return err
			}
			tel.ReportCount(report_cache_prune, pruned)
			return nil
		})
		if err != nil {
			return err
		}
	}

	b := bot.New(bot.Options{
		Scraper:   session.Scraper,
		TeamID:    cfg.TeamID,
		Racing:    zwiftracing.NewClient(zwiftracing.Options{Telemetry: tel}),
		Telemetry: tel,
	})
	slog.Info("starting bot", "team", cfg.TeamID)
	return b.Run(ctx, cfg.DiscordToken)
}
