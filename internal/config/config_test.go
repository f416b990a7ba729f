package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"runlytics/internal/analysis"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test athlete defaults
	if cfg.Athlete.RestingHR != 55 {
		t.Errorf("Athlete.RestingHR = %v, want 55", cfg.Athlete.RestingHR)
	}
	if cfg.Athlete.MaxHR != 190 {
		t.Errorf("Athlete.MaxHR = %v, want 190", cfg.Athlete.MaxHR)
	}
	if cfg.Athlete.ThresholdHR != 170 {
		t.Errorf("Athlete.ThresholdHR = %v, want 170", cfg.Athlete.ThresholdHR)
	}

	// Test display defaults
	if cfg.Display.DistanceUnit != "km" {
		t.Errorf("Display.DistanceUnit = %q, want %q", cfg.Display.DistanceUnit, "km")
	}
	if cfg.Display.PaceUnit != "min/km" {
		t.Errorf("Display.PaceUnit = %q, want %q", cfg.Display.PaceUnit, "min/km")
	}

	if cfg.Analytics.FreshnessDays != 7 {
		t.Errorf("Analytics.FreshnessDays = %d, want 7", cfg.Analytics.FreshnessDays)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Kafka.Topic != "runlytics.activities" {
		t.Errorf("Kafka.Topic = %q", cfg.Kafka.Topic)
	}

	// Strava config should be empty by default
	if cfg.Strava.ClientID != "" {
		t.Errorf("Strava.ClientID should be empty, got %q", cfg.Strava.ClientID)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{
			name:        "bad distance unit",
			mutate:      func(c *Config) { c.Display.DistanceUnit = "furlongs" },
			errContains: "distance_unit",
		},
		{
			name:        "max HR not above resting",
			mutate:      func(c *Config) { c.Athlete.MaxHR = 50 },
			errContains: "max_hr",
		},
		{
			name:        "threshold at max",
			mutate:      func(c *Config) { c.Athlete.ThresholdHR = c.Athlete.MaxHR },
			errContains: "threshold_hr",
		},
		{
			name:        "zero freshness",
			mutate:      func(c *Config) { c.Analytics.FreshnessDays = 0 },
			errContains: "freshness_days",
		},
		{
			name:        "unknown mean mode",
			mutate:      func(c *Config) { c.Analytics.PaceZoneMean = "median" },
			errContains: "pace_zone_mean",
		},
		{
			name:        "short multiplier table",
			mutate:      func(c *Config) { c.Analytics.FitnessMultipliers = []float64{1, 1} },
			errContains: "fitness_multipliers",
		},
		{
			name:        "non-positive load factor",
			mutate:      func(c *Config) { c.Analytics.LoadFactors = []float64{0.6, 0.8, 0, 1.2, 1.5} },
			errContains: "load_factors[2]",
		},
		{
			name:        "bad duration",
			mutate:      func(c *Config) { c.Redis.TTL = "soon" },
			errContains: "redis.ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestConfigValidateStrava(t *testing.T) {
	tests := []struct {
		name        string
		strava      StravaConfig
		errContains string
	}{
		{"valid", StravaConfig{ClientID: "12345", ClientSecret: "abc123secret"}, ""},
		{"empty client ID", StravaConfig{ClientSecret: "abc123secret"}, "client_id"},
		{"placeholder client ID", StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "abc123secret"}, "client_id"},
		{"placeholder client secret", StravaConfig{ClientID: "12345", ClientSecret: "YOUR_CLIENT_SECRET"}, "client_secret"},
		{"both placeholders", StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "YOUR_CLIENT_SECRET"}, "client_id"}, // first error wins
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Strava: tt.strava}
			err := cfg.ValidateStrava()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %v should contain %q", err, tt.errContains)
			}
		})
	}
}

func TestLoadFrom_Missing(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if !errors.Is(err, ErrNoConfig) {
		t.Errorf("LoadFrom() error = %v, want ErrNoConfig", err)
	}
}

func TestLoadFrom_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"athlete": {"max_hr": 200}, "analytics": {"pace_zone_mean": "incremental"}}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Athlete.MaxHR != 200 {
		t.Errorf("Athlete.MaxHR = %v, want 200", cfg.Athlete.MaxHR)
	}
	if cfg.Athlete.RestingHR != 55 {
		t.Errorf("Athlete.RestingHR = %v, want default 55", cfg.Athlete.RestingHR)
	}
	if cfg.MeanMode() != analysis.MeanIncremental {
		t.Errorf("MeanMode() = %q, want incremental", cfg.MeanMode())
	}
	if len(cfg.Analytics.FitnessMultipliers) != analysis.NumZones {
		t.Errorf("FitnessMultipliers = %v, want defaults", cfg.Analytics.FitnessMultipliers)
	}
	if cfg.FreshnessWindow() != 7*24*time.Hour {
		t.Errorf("FreshnessWindow() = %v, want 168h", cfg.FreshnessWindow())
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"athlete": {"max_hr": 200}}`), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RUNLYTICS_ATHLETE_MAX_HR", "185")
	t.Setenv("RUNLYTICS_ANALYTICS_FRESHNESS_DAYS", "14")
	t.Setenv("RUNLYTICS_SERVER_ADDR", ":9090")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Athlete.MaxHR != 185 {
		t.Errorf("Athlete.MaxHR = %v, want 185 from env", cfg.Athlete.MaxHR)
	}
	if cfg.Analytics.FreshnessDays != 14 {
		t.Errorf("Analytics.FreshnessDays = %d, want 14 from env", cfg.Analytics.FreshnessDays)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090 from env", cfg.Server.Addr)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Strava.ClientID = "12345"
	cfg.Athlete.ThresholdHR = 168

	if err := SaveTo(path, &cfg); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.Strava.ClientID != "12345" || loaded.Athlete.ThresholdHR != 168 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestFitnessConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Athlete.MaxHR = 200
	cfg.Athlete.RestingHR = 48
	cfg.Analytics.LoadFactors = []float64{1, 1, 1, 1, 2}

	fc := cfg.FitnessConfig()
	if fc.MaxHR != 200 || fc.RestingHR != 48 {
		t.Errorf("HR = %v/%v, want 200/48", fc.MaxHR, fc.RestingHR)
	}
	if fc.LoadFactors[4] != 2 {
		t.Errorf("LoadFactors = %v", fc.LoadFactors)
	}
	if fc.Multipliers != analysis.DefaultFitnessConfig().Multipliers {
		t.Errorf("Multipliers = %v, want defaults", fc.Multipliers)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RebuildInterval() != 6*time.Hour {
		t.Errorf("RebuildInterval() = %v", cfg.RebuildInterval())
	}
	if cfg.IngestDebounce() != 2*time.Second {
		t.Errorf("IngestDebounce() = %v", cfg.IngestDebounce())
	}

	cfg.Redis.TTL = "30m"
	if cfg.CacheTTL() != 30*time.Minute {
		t.Errorf("CacheTTL() = %v", cfg.CacheTTL())
	}
	cfg.Redis.TTL = "garbage"
	if cfg.CacheTTL() != 6*time.Hour {
		t.Errorf("CacheTTL() fallback = %v", cfg.CacheTTL())
	}
}
