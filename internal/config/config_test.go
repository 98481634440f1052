package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
bot:
  token: test-token
  poll_timeout: 15
remote:
  limits:
    like_rate_per_minute: 90
  geo:
    bucket_degrees: 0.25
  cities:
    - id: minsk
      name: Minsk
      lat: 53.9
      lon: 27.56
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Bot.Token != "test-token" {
		t.Fatalf("unexpected bot token: %s", cfg.Bot.Token)
	}
	if cfg.Bot.PollTimeout != 15 {
		t.Fatalf("unexpected poll timeout: %d", cfg.Bot.PollTimeout)
	}
	if cfg.Remote.Limits.LikeRatePerMinute != 90 {
		t.Fatalf("unexpected like rate/min: %d", cfg.Remote.Limits.LikeRatePerMinute)
	}
	if cfg.Remote.Geo.BucketDegrees != 0.25 {
		t.Fatalf("unexpected geo bucket: %f", cfg.Remote.Geo.BucketDegrees)
	}
	if len(cfg.Remote.Cities) != 1 || cfg.Remote.Cities[0].ID != "minsk" {
		t.Fatalf("unexpected cities: %+v", cfg.Remote.Cities)
	}

	if cfg.Remote.Limits.LikeRatePer10Seconds != 12 {
		t.Fatalf("like_rate_per_10sec default should stay 12")
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("http addr default should stay :8080")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Remote.Limits.LikeRatePerMinute != 45 {
		t.Fatalf("unexpected default like rate/min: %d", cfg.Remote.Limits.LikeRatePerMinute)
	}
	if cfg.Remote.Geo.BucketDegrees != 0.5 {
		t.Fatalf("unexpected default geo bucket: %f", cfg.Remote.Geo.BucketDegrees)
	}
	if len(cfg.Remote.Cities) != 6 {
		t.Fatalf("unexpected default cities count: %d", len(cfg.Remote.Cities))
	}
	if cfg.Bot.PollTimeout != 30 {
		t.Fatalf("unexpected default poll timeout: %d", cfg.Bot.PollTimeout)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("LIKE_RATE_PER_10SEC", "3")
	t.Setenv("GEO_BUCKET_DEGREES", "1.0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Bot.Token != "env-token" {
		t.Fatalf("unexpected bot token: %s", cfg.Bot.Token)
	}
	if cfg.Remote.Limits.LikeRatePer10Seconds != 3 {
		t.Fatalf("unexpected like rate/10s: %d", cfg.Remote.Limits.LikeRatePer10Seconds)
	}
	if cfg.Remote.Geo.BucketDegrees != 1.0 {
		t.Fatalf("unexpected geo bucket: %f", cfg.Remote.Geo.BucketDegrees)
	}
}

func TestLoadRejectsMissingBotTokenInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when bot.token is empty in production")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"BOT_TOKEN",
		"BOT_POLL_TIMEOUT",
		"LIKE_RATE_PER_MINUTE",
		"LIKE_RATE_PER_10SEC",
		"GEO_BUCKET_DEGREES",
	} {
		t.Setenv(key, "")
	}
}
