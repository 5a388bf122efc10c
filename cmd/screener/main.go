package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"EquityScreener/internal/app"
	"EquityScreener/internal/config"
	"EquityScreener/internal/scheduler"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg)
	log.Info().Str("config", cfgPath).Msg("EquityScreener starting")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build screener")
	}
	defer a.Close()

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		go a.Metrics.Serve(ctx, cfg.Metrics.Addr)
	}

	if cfg.Schedule.DailyCron == "" {
		if _, err := a.Runner.Run(ctx); err != nil {
			log.Error().Err(err).Msg("screening run failed")
			a.Close()
			os.Exit(1)
		}
		return
	}

	sched := scheduler.NewScheduler(ctx, a.Runner)
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	if a.Telegram != nil {
		go a.Telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, screening now")
		sched.HandleCommand(ctx, "/scan")
	}

	log.Info().Str("cron", cfg.Schedule.DailyCron).Msg("EquityScreener is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping...")
}

// setupLogging configures the global zerolog logger from cfg.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Log.JSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}
}
