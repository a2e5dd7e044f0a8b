package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/Prabhat2912/contest-tracker/internal/aggregator"
	"github.com/Prabhat2912/contest-tracker/internal/api"
	"github.com/Prabhat2912/contest-tracker/internal/config"
	"github.com/Prabhat2912/contest-tracker/internal/enrich"
	"github.com/Prabhat2912/contest-tracker/internal/scheduler"
	"github.com/Prabhat2912/contest-tracker/internal/solution"
	"github.com/Prabhat2912/contest-tracker/internal/source"
	"github.com/Prabhat2912/contest-tracker/internal/source/codechef"
	"github.com/Prabhat2912/contest-tracker/internal/source/codeforces"
	"github.com/Prabhat2912/contest-tracker/internal/source/leetcode"
	"github.com/Prabhat2912/contest-tracker/internal/storage"
	"github.com/Prabhat2912/contest-tracker/internal/storage/mongo"
	"github.com/Prabhat2912/contest-tracker/internal/storage/sqlite"
	"github.com/Prabhat2912/contest-tracker/pkg/clock"
	"github.com/Prabhat2912/contest-tracker/pkg/logger"
	"github.com/Prabhat2912/contest-tracker/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "contest-scheduler",
		Short: "Contest tracker daemon",
		Long: `Aggregates programming contests from Codeforces, LeetCode and CodeChef,
enriches finished contests with YouTube solution links and serves the HTTP API.
Run as a long-lived service.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting Contest Tracker")

	// Initialize storage based on configuration
	switch cfg.Database.Driver {
	case "mongo":
		log.Info().Str("database", cfg.Database.Name).Msg("Using MongoDB storage")
		repo, err = mongo.New(cfg.Database.URI, cfg.Database.Name)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
	default:
		log.Info().Str("dsn", cfg.Database.DSN).Msg("Using SQLite storage")
		repo, err = sqlite.New(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize rate limiter
	limiter := ratelimit.NewDefaultLimiter()

	// Initialize source manager
	sourceManager := source.NewManager()
	if cfg.Sources.Codeforces.Enabled {
		sourceManager.Register(codeforces.New(cfg.Sources.Codeforces, limiter, log))
	}
	if cfg.Sources.LeetCode.Enabled {
		sourceManager.Register(leetcode.New(cfg.Sources.LeetCode, limiter, log))
	}
	if cfg.Sources.CodeChef.Enabled {
		sourceManager.Register(codechef.New(cfg.Sources.CodeChef, limiter, log))
	}

	agg := aggregator.New(sourceManager, repo, cfg.Aggregator.MaxContests, log)

	// Solution enrichment needs a YouTube API key; without one the tracker
	// still aggregates contests
	var runner *enrich.Runner
	if cfg.YouTube.APIKey != "" {
		ytClient, err := solution.NewYouTubeClient(context.Background(), cfg.YouTube.APIKey, limiter, log)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		finder := solution.NewFinder(ytClient, cfg.YouTube.MaxResults, log)
		runner = enrich.NewRunner(repo, finder, clock.New(), enrich.Options{
			BatchSize:    cfg.Enrichment.BatchSize,
			Budget:       cfg.Enrichment.Budget,
			PerItemDelay: cfg.Enrichment.PerItemDelay,
			GracePeriod:  cfg.Enrichment.GracePeriod,
		}, log)
	} else {
		log.Warn().Msg("No YouTube API key configured, solution fetching disabled")
	}

	// Recurring jobs: either the built-in timer scheduler or cron expressions
	var sched *scheduler.Scheduler
	var cronRunner *cron.Cron
	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.ContestCron != "" || cfg.Scheduler.SolutionCron != "" {
			cronRunner, err = startCronJobs(agg, runner)
			if err != nil {
				return err
			}
		} else {
			sched = startTimerJobs(agg, runner)
		}
	} else {
		log.Info().Msg("Scheduler disabled, serving trigger endpoints only")
	}

	// HTTP API
	server := api.NewServer(api.Config{
		Updater:    agg,
		Runner:     apiRunner(runner),
		Scheduler:  apiScheduler(sched),
		Repository: repo,
		CronSecret: cfg.Auth.CronSecret,
		Logger:     log,
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: server.Engine(),
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")

	if sched != nil {
		sched.StopAllSchedules()
	}
	if cronRunner != nil {
		cronRunner.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}

	return nil
}

// startTimerJobs arms the self-rescheduling timer jobs
func startTimerJobs(agg *aggregator.Aggregator, runner *enrich.Runner) *scheduler.Scheduler {
	sched := scheduler.New(clock.New(), log)

	sched.ScheduleDailyContestUpdates(cfg.Scheduler.ContestUpdateHour, cfg.Scheduler.ContestUpdateMinute,
		func(ctx context.Context) error {
			result, err := agg.Run(ctx)
			if err != nil {
				return err
			}
			log.Info().
				Int("fetched", result.Fetched).
				Int("inserted", result.Inserted).
				Msg("Scheduled contest update completed")
			return nil
		})

	if runner != nil {
		sched.ScheduleSolutionFetching(cfg.Scheduler.SolutionFetchInterval,
			func(ctx context.Context) error {
				result, err := runner.RunBatch(ctx)
				if err != nil {
					return err
				}
				log.Info().
					Int("processed", result.Processed).
					Int("found", result.Found).
					Msg("Scheduled solution fetch completed")
				return nil
			})
	}

	return sched
}

// startCronJobs registers the jobs with cron expressions instead of the
// timer scheduler
func startCronJobs(agg *aggregator.Aggregator, runner *enrich.Runner) (*cron.Cron, error) {
	c := cron.New(cron.WithLogger(cronLogger{log}))

	if cfg.Scheduler.ContestCron != "" {
		_, err := c.AddFunc(cfg.Scheduler.ContestCron, func() {
			if _, err := agg.Run(context.Background()); err != nil {
				log.Error().Err(err).Msg("Scheduled contest update failed")
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule contest updates: %w", err)
		}
		log.Info().Str("cron", cfg.Scheduler.ContestCron).Msg("Contest update job scheduled")
	}

	if cfg.Scheduler.SolutionCron != "" && runner != nil {
		_, err := c.AddFunc(cfg.Scheduler.SolutionCron, func() {
			if _, err := runner.RunBatch(context.Background()); err != nil {
				log.Error().Err(err).Msg("Scheduled solution fetch failed")
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule solution fetching: %w", err)
		}
		log.Info().Str("cron", cfg.Scheduler.SolutionCron).Msg("Solution fetch job scheduled")
	}

	c.Start()
	return c, nil
}

// apiRunner avoids a typed-nil interface when enrichment is disabled
func apiRunner(r *enrich.Runner) api.SolutionRunner {
	if r == nil {
		return nil
	}
	return r
}

func apiScheduler(s *scheduler.Scheduler) api.SchedulerStatus {
	if s == nil {
		return nil
	}
	return s
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}
