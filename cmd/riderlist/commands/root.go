package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"bakpdlbot/internal/components/telemetry"
	"bakpdlbot/internal/config"
	"bakpdlbot/internal/riderlist"
	"bakpdlbot/internal/zwiftracing"

	"github.com/spf13/cobra"
)

const defaultSleep = time.Second * 2

var (
	clearCache bool
	debug      bool
	outputFile string
	zwiftUser  string
	zwiftPass  string
	vars       []string
	configFile string
	cacheDSN   string
	sleep      time.Duration
)

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&clearCache, "clear-cache", false, "Clears the response cache before running.")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging.")
	flags.StringVarP(&outputFile, "output-file", "o", "-", "Save output to file, - is stdout.")
	flags.StringVar(&zwiftUser, "zwift-user", "", "Overrides "+config.EnvZwiftUser+" (supports .env).")
	flags.StringVar(&zwiftPass, "zwift-pass", "", "Overrides "+config.EnvZwiftPass+" (supports .env).")
	flags.StringArrayVar(&vars, "var", nil, "NAME=VALUE variable passed to the template as .Args, may be repeated.")
	flags.StringVar(&configFile, "config", "config.json5", "The config file to read.")
	flags.StringVar(&cacheDSN, "cache", "", "Overrides the cache dsn (a sqlite path, libsql:// url or memory:).")
	flags.DurationVar(&sleep, "sleep", 0, "Delay after every uncached request (default 2s).")
}

var rootCmd = &cobra.Command{
	Use:   "riderlist <source> <template>",
	Short: "Output some sort of rider list with data downloaded from ZwiftPower.",
	Long: `Output some sort of rider list with data downloaded from ZwiftPower.

Sources:
  team:13264
  riders:514482,399078
  race_results:2692522
  race_unfiltered:2692522
  race_signups:2692522

The template is read from the given path, or from the builtin templates of that name.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(debug)
		return run(cmd.Context(), args[0], args[1])
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func templateArgs() (map[string]string, error) {
	out := map[string]string{}
	for _, v := range vars {
		name, value, err := riderlist.ParseVar(v)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func run(ctx context.Context, rawSource, templateName string) error {
	source, err := riderlist.ParseSource(rawSource)
	if err != nil {
		return err
	}
	tplArgs, err := templateArgs()
	if err != nil {
		return err
	}
	tpl, err := riderlist.LoadTemplate(templateName)
	if err != nil {
		return err
	}

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

	tel := telemetry.SlogAPI{}
	session, err := cfg.OpenSession(ctx, tel, defaultSleep)
	if err != nil {
		return err
	}
	defer session.Close()

	if clearCache {
		slog.Info("clearing cache")
		err = session.Cache.Clear(ctx)
		if err != nil {
			return err
		}
	}

	gatherer := riderlist.Gatherer{
		Scraper: session.Scraper,
		Racing:  zwiftracing.NewClient(zwiftracing.Options{Telemetry: tel}),
	}
	data, err := gatherer.Gather(ctx, source)
	if err != nil {
		return err
	}
	data.Args = tplArgs

	var out strings.Builder
	err = riderlist.Render(&out, tpl, data)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outputFile != "-" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err = io.WriteString(w, out.String())
	return err
}
