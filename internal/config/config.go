package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"runlytics/internal/analysis"
)

// Config represents the application configuration
type Config struct {
	Strava    StravaConfig    `json:"strava" mapstructure:"strava"`
	Athlete   AthleteConfig   `json:"athlete" mapstructure:"athlete"`
	Display   DisplayConfig   `json:"display" mapstructure:"display"`
	Analytics AnalyticsConfig `json:"analytics" mapstructure:"analytics"`
	Server    ServerConfig    `json:"server" mapstructure:"server"`
	Redis     RedisConfig     `json:"redis" mapstructure:"redis"`
	Kafka     KafkaConfig     `json:"kafka" mapstructure:"kafka"`
	Ingest    IngestConfig    `json:"ingest" mapstructure:"ingest"`
	Storage   StorageConfig   `json:"storage" mapstructure:"storage"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
}

// AthleteConfig holds athlete-specific settings
type AthleteConfig struct {
	RestingHR   float64 `json:"resting_hr" mapstructure:"resting_hr"`
	MaxHR       float64 `json:"max_hr" mapstructure:"max_hr"`
	ThresholdHR float64 `json:"threshold_hr" mapstructure:"threshold_hr"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `json:"distance_unit" mapstructure:"distance_unit"`
	PaceUnit     string `json:"pace_unit" mapstructure:"pace_unit"`
}

// AnalyticsConfig tunes the analytics engine
type AnalyticsConfig struct {
	FreshnessDays      int       `json:"freshness_days" mapstructure:"freshness_days"`
	PaceZoneMean       string    `json:"pace_zone_mean" mapstructure:"pace_zone_mean"`
	FitnessMultipliers []float64 `json:"fitness_multipliers" mapstructure:"fitness_multipliers"`
	LoadFactors        []float64 `json:"load_factors" mapstructure:"load_factors"`
	RebuildInterval    string    `json:"rebuild_interval" mapstructure:"rebuild_interval"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// RedisConfig configures the precomputed rollup cache. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	TTL      string `json:"ttl" mapstructure:"ttl"`
}

// KafkaConfig configures activity events. No brokers disables them.
type KafkaConfig struct {
	Brokers []string `json:"brokers" mapstructure:"brokers"`
	Topic   string   `json:"topic" mapstructure:"topic"`
	GroupID string   `json:"group_id" mapstructure:"group_id"`
}

// IngestConfig configures FIT file ingestion
type IngestConfig struct {
	WatchDir string `json:"watch_dir" mapstructure:"watch_dir"`
	Debounce string `json:"debounce" mapstructure:"debounce"`
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

const envPrefix = "RUNLYTICS"

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	fc := analysis.DefaultFitnessConfig()
	return Config{
		Athlete: AthleteConfig{
			RestingHR:   fc.RestingHR,
			MaxHR:       fc.MaxHR,
			ThresholdHR: 170,
		},
		Display: DisplayConfig{
			DistanceUnit: "km",
			PaceUnit:     "min/km",
		},
		Analytics: AnalyticsConfig{
			FreshnessDays:      7,
			PaceZoneMean:       string(analysis.MeanPlain),
			FitnessMultipliers: fc.Multipliers[:],
			LoadFactors:        fc.LoadFactors[:],
			RebuildInterval:    "6h",
		},
		Server: ServerConfig{Addr: ":8080"},
		Redis:  RedisConfig{TTL: "6h"},
		Kafka: KafkaConfig{
			Brokers: []string{},
			Topic:   "runlytics.activities",
			GroupID: "runlytics-rollups",
		},
		Ingest:  IngestConfig{Debounce: "2s"},
		Storage: StorageConfig{Path: defaultDBPath()},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("strava.client_id", d.Strava.ClientID)
	v.SetDefault("strava.client_secret", d.Strava.ClientSecret)
	v.SetDefault("athlete.resting_hr", d.Athlete.RestingHR)
	v.SetDefault("athlete.max_hr", d.Athlete.MaxHR)
	v.SetDefault("athlete.threshold_hr", d.Athlete.ThresholdHR)
	v.SetDefault("display.distance_unit", d.Display.DistanceUnit)
	v.SetDefault("display.pace_unit", d.Display.PaceUnit)
	v.SetDefault("analytics.freshness_days", d.Analytics.FreshnessDays)
	v.SetDefault("analytics.pace_zone_mean", d.Analytics.PaceZoneMean)
	v.SetDefault("analytics.fitness_multipliers", d.Analytics.FitnessMultipliers)
	v.SetDefault("analytics.load_factors", d.Analytics.LoadFactors)
	v.SetDefault("analytics.rebuild_interval", d.Analytics.RebuildInterval)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("kafka.group_id", d.Kafka.GroupID)
	v.SetDefault("ingest.watch_dir", d.Ingest.WatchDir)
	v.SetDefault("ingest.debounce", d.Ingest.Debounce)
	v.SetDefault("storage.path", d.Storage.Path)
}

// Load reads the configuration from ~/.runlytics/config.json, with
// RUNLYTICS_* environment variables taking precedence over the file.
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from path
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrNoConfig
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to ~/.runlytics/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}

	return SaveTo(path, &example)
}

// Validate checks the athlete, display and analytics settings
func (c *Config) Validate() error {
	// Validate display units
	if c.Display.DistanceUnit != "" && c.Display.DistanceUnit != "km" && c.Display.DistanceUnit != "mi" {
		return fmt.Errorf("display.distance_unit must be \"km\" or \"mi\", got %q", c.Display.DistanceUnit)
	}
	if c.Display.PaceUnit != "" && c.Display.PaceUnit != "min/km" && c.Display.PaceUnit != "min/mi" {
		return fmt.Errorf("display.pace_unit must be \"min/km\" or \"min/mi\", got %q", c.Display.PaceUnit)
	}

	if c.Athlete.MaxHR <= c.Athlete.RestingHR {
		return fmt.Errorf("athlete.max_hr (%v) must be greater than athlete.resting_hr (%v)", c.Athlete.MaxHR, c.Athlete.RestingHR)
	}
	// Validate threshold_hr < max_hr when both are set
	if c.Athlete.ThresholdHR > 0 && c.Athlete.MaxHR > 0 && c.Athlete.ThresholdHR >= c.Athlete.MaxHR {
		return fmt.Errorf("athlete.threshold_hr (%v) must be less than athlete.max_hr (%v)", c.Athlete.ThresholdHR, c.Athlete.MaxHR)
	}

	if c.Analytics.FreshnessDays < 1 {
		return fmt.Errorf("analytics.freshness_days must be at least 1, got %d", c.Analytics.FreshnessDays)
	}
	if _, err := analysis.ParseMeanMode(c.Analytics.PaceZoneMean); err != nil {
		return fmt.Errorf("analytics.pace_zone_mean: %w", err)
	}
	if err := checkTable("analytics.fitness_multipliers", c.Analytics.FitnessMultipliers); err != nil {
		return err
	}
	if err := checkTable("analytics.load_factors", c.Analytics.LoadFactors); err != nil {
		return err
	}

	durations := map[string]string{
		"analytics.rebuild_interval": c.Analytics.RebuildInterval,
		"redis.ttl":                  c.Redis.TTL,
		"ingest.debounce":            c.Ingest.Debounce,
	}
	for key, s := range durations {
		if s == "" {
			continue
		}
		if d, err := time.ParseDuration(s); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %q", key, s)
		}
	}

	return nil
}

func checkTable(key string, table []float64) error {
	if len(table) != analysis.NumZones {
		return fmt.Errorf("%s must have %d entries, got %d", key, analysis.NumZones, len(table))
	}
	for i, f := range table {
		if f <= 0 {
			return fmt.Errorf("%s[%d] must be positive, got %v", key, i, f)
		}
	}
	return nil
}

// ValidateStrava checks that Strava API credentials are present
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// FitnessConfig converts the athlete and analytics settings into the
// estimator's configuration. Tables of the wrong length keep the defaults.
func (c *Config) FitnessConfig() analysis.FitnessConfig {
	fc := analysis.DefaultFitnessConfig()
	if c.Athlete.MaxHR > 0 {
		fc.MaxHR = c.Athlete.MaxHR
	}
	if c.Athlete.RestingHR > 0 {
		fc.RestingHR = c.Athlete.RestingHR
	}
	if len(c.Analytics.FitnessMultipliers) == analysis.NumZones {
		copy(fc.Multipliers[:], c.Analytics.FitnessMultipliers)
	}
	if len(c.Analytics.LoadFactors) == analysis.NumZones {
		copy(fc.LoadFactors[:], c.Analytics.LoadFactors)
	}
	return fc
}

// FreshnessWindow is how far back live aggregation reaches before the
// precomputed tables take over.
func (c *Config) FreshnessWindow() time.Duration {
	days := c.Analytics.FreshnessDays
	if days < 1 {
		days = DefaultConfig().Analytics.FreshnessDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// MeanMode returns the configured pace-zone averaging mode
func (c *Config) MeanMode() analysis.MeanMode {
	mode, err := analysis.ParseMeanMode(c.Analytics.PaceZoneMean)
	if err != nil {
		return analysis.MeanPlain
	}
	return mode
}

// RebuildInterval returns the periodic rollup rebuild interval
func (c *Config) RebuildInterval() time.Duration {
	return parseDurationOr(c.Analytics.RebuildInterval, 6*time.Hour)
}

// CacheTTL returns how long cached rollup reads live in Redis
func (c *Config) CacheTTL() time.Duration {
	return parseDurationOr(c.Redis.TTL, 6*time.Hour)
}

// IngestDebounce returns how long the watcher waits for a file to settle
func (c *Config) IngestDebounce() time.Duration {
	return parseDurationOr(c.Ingest.Debounce, 2*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".runlytics"), nil
}

func defaultDBPath() string {
	dir, err := GetConfigDir()
	if err != nil {
		return "data.db"
	}
	return filepath.Join(dir, "data.db")
}
