package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Prabhat2912/contest-tracker/internal/aggregator"
	"github.com/Prabhat2912/contest-tracker/internal/config"
	"github.com/Prabhat2912/contest-tracker/internal/enrich"
	"github.com/Prabhat2912/contest-tracker/internal/models"
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
		Use:   "contest-tracker",
		Short: "Competitive programming contest tracker",
		Long: `Aggregates contests from Codeforces, LeetCode and CodeChef and finds
YouTube solution videos for finished contests.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(updateContestsCmd())
	rootCmd.AddCommand(fetchSolutionsCmd())
	rootCmd.AddCommand(contestsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
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

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func newSourceManager(limiter *ratelimit.MultiLimiter) *source.Manager {
	manager := source.NewManager()
	if cfg.Sources.Codeforces.Enabled {
		manager.Register(codeforces.New(cfg.Sources.Codeforces, limiter, log))
	}
	if cfg.Sources.LeetCode.Enabled {
		manager.Register(leetcode.New(cfg.Sources.LeetCode, limiter, log))
	}
	if cfg.Sources.CodeChef.Enabled {
		manager.Register(codechef.New(cfg.Sources.CodeChef, limiter, log))
	}
	return manager
}

func updateContestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-contests",
		Short: "Fetch contests from all sources and store new ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			limiter := ratelimit.NewDefaultLimiter()
			agg := aggregator.New(newSourceManager(limiter), repo, cfg.Aggregator.MaxContests, log)

			result, err := agg.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Contest Update ===\n")
			fmt.Printf("Fetched:  %d\n", result.Fetched)
			fmt.Printf("Inserted: %d\n", result.Inserted)
			fmt.Printf("Duration: %s\n", result.Duration.Round(time.Millisecond))

			names := make([]string, 0, len(result.Sources))
			for name := range result.Sources {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %-12s %d\n", name, result.Sources[name])
			}

			return nil
		},
	}
}

func fetchSolutionsCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "fetch-solutions",
		Short: "Find YouTube solution videos for finished contests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if cfg.YouTube.APIKey == "" {
				return fmt.Errorf("no YouTube API key configured (set YOUTUBE_API_KEY)")
			}

			limiter := ratelimit.NewDefaultLimiter()
			ytClient, err := solution.NewYouTubeClient(ctx, cfg.YouTube.APIKey, limiter, log)
			if err != nil {
				return fmt.Errorf("failed to create YouTube client: %w", err)
			}
			finder := solution.NewFinder(ytClient, cfg.YouTube.MaxResults, log)

			runner := enrich.NewRunner(repo, finder, clock.New(), enrich.Options{
				BatchSize:    cfg.Enrichment.BatchSize,
				Budget:       cfg.Enrichment.Budget,
				PerItemDelay: cfg.Enrichment.PerItemDelay,
				GracePeriod:  cfg.Enrichment.GracePeriod,
			}, log)

			result, err := runner.RunBatchSize(ctx, batchSize)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Solution Fetch ===\n")
			fmt.Printf("Processed: %d\n", result.Processed)
			fmt.Printf("Found:     %d\n", result.Found)
			fmt.Printf("Deferred:  %d\n", result.Deferred)
			fmt.Printf("Elapsed:   %s\n", result.Elapsed.Round(time.Millisecond))

			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Override the configured batch size")
	return cmd
}

func contestsCmd() *cobra.Command {
	var platform string
	var limit int

	cmd := &cobra.Command{
		Use:   "contests",
		Short: "List stored contests",
		RunE: func(cmd *cobra.Command, args []string) error {
			contests, err := repo.ListContests(context.Background(), storage.ContestFilter{
				Platform: platform,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			if len(contests) == 0 {
				fmt.Println("No contests stored")
				return nil
			}

			fmt.Printf("\n%-12s %-45s %-20s %s\n", "PLATFORM", "NAME", "START (UTC)", "SOLUTION")
			for _, c := range contests {
				printContestRow(c)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "Filter by platform (codeforces, leetcode, codechef)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum contests to list")
	return cmd
}

func printContestRow(c models.Contest) {
	name := c.Name
	if len(name) > 43 {
		name = name[:40] + "..."
	}
	solutionMark := "-"
	if c.SolutionLink != "" {
		solutionMark = c.SolutionLink
	}
	fmt.Printf("%-12s %-45s %-20s %s\n",
		c.Platform,
		name,
		time.Unix(c.StartTimeUnix, 0).UTC().Format("2006-01-02 15:04"),
		solutionMark,
	)
}
