package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("server address = %q", cfg.Server.Address)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database driver = %q", cfg.Database.Driver)
	}
	if !cfg.Sources.Codeforces.Enabled || !cfg.Sources.LeetCode.Enabled || !cfg.Sources.CodeChef.Enabled {
		t.Error("all sources should default to enabled")
	}
	if cfg.Sources.CodeChef.MaxResults != 50 {
		t.Errorf("codechef max_results = %d", cfg.Sources.CodeChef.MaxResults)
	}
	if cfg.Aggregator.MaxContests != 300 {
		t.Errorf("max_contests = %d", cfg.Aggregator.MaxContests)
	}
	if cfg.Enrichment.BatchSize != 5 {
		t.Errorf("batch_size = %d", cfg.Enrichment.BatchSize)
	}
	if cfg.Enrichment.Budget != 50*time.Second {
		t.Errorf("budget = %v", cfg.Enrichment.Budget)
	}
	if cfg.Enrichment.PerItemDelay != 800*time.Millisecond {
		t.Errorf("per_item_delay = %v", cfg.Enrichment.PerItemDelay)
	}
	if cfg.Enrichment.GracePeriod != 2*time.Hour {
		t.Errorf("grace_period = %v", cfg.Enrichment.GracePeriod)
	}
	if cfg.Scheduler.SolutionFetchInterval != 6*time.Hour {
		t.Errorf("solution_fetch_interval = %v", cfg.Scheduler.SolutionFetchInterval)
	}
	if cfg.Scheduler.ContestUpdateHour != 0 || cfg.Scheduler.ContestUpdateMinute != 0 {
		t.Errorf("contest update time = %d:%d", cfg.Scheduler.ContestUpdateHour, cfg.Scheduler.ContestUpdateMinute)
	}
	if cfg.Auth.CronSecret != "" {
		t.Errorf("cron secret should default empty, got %q", cfg.Auth.CronSecret)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONTEST_DATABASE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://db.example:27017")
	t.Setenv("CRON_SECRET", "s3cret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Driver != "mongo" {
		t.Errorf("driver = %q, want mongo", cfg.Database.Driver)
	}
	if cfg.Database.URI != "mongodb://db.example:27017" {
		t.Errorf("uri = %q", cfg.Database.URI)
	}
	if cfg.Auth.CronSecret != "s3cret" {
		t.Errorf("cron secret = %q", cfg.Auth.CronSecret)
	}
}
