package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/recruitment-engine/internal/application/engine"
	"github.com/garyjia/recruitment-engine/internal/domain/scoring"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
	"github.com/garyjia/recruitment-engine/internal/infrastructure/screening"
	"github.com/garyjia/recruitment-engine/pkg/database"
	"github.com/garyjia/recruitment-engine/pkg/utils"
)

// EnvPrefix prefixes every environment override, e.g. RECRUIT_SERVER_PORT
const EnvPrefix = "RECRUIT"

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Recruitment RecruitmentConfig `mapstructure:"recruitment"`
	Screening   ScreeningConfig   `mapstructure:"screening"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	// MigrationsDir overrides the embedded schema when set
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// WeightsConfig holds the shortlisting criterion weights
type WeightsConfig struct {
	Academic   float64 `mapstructure:"academic"`
	Experience float64 `mapstructure:"experience"`
	Other      float64 `mapstructure:"other"`
}

// RecruitmentConfig holds the engine defaults and thresholds
type RecruitmentConfig struct {
	ShortlistWeights      WeightsConfig     `mapstructure:"shortlist_weights"`
	ShortlistPassingScore float64           `mapstructure:"shortlist_passing_score"`
	TestPassingMarks      float64           `mapstructure:"test_passing_marks"`
	PriorWeight           float64           `mapstructure:"prior_weight"`
	InterviewWeight       float64           `mapstructure:"interview_weight"`
	MinCommitteeMembers   int               `mapstructure:"min_committee_members"`
	MinVerifiedReferences int               `mapstructure:"min_verified_references"`
	RequiredDocuments     []string          `mapstructure:"required_documents"`
	StoreTimeout          time.Duration     `mapstructure:"store_timeout"`
	SequencePrefixes      map[string]string `mapstructure:"sequence_prefixes"`
}

// ScreeningConfig holds the sanction screener settings
type ScreeningConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	// Latency simulates the response time of the screening provider
	Latency   time.Duration `mapstructure:"latency"`
	Watchlist []string      `mapstructure:"watchlist"`
}

// Load loads configuration from file and environment variables.
// A .env file next to the config file is read first; variables already
// present in the environment win over it.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	err := gotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/recruitment.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.busy_timeout", database.DefaultBusyTimeout)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Recruitment defaults
	def := engine.DefaultConfig()
	v.SetDefault("recruitment.shortlist_weights.academic", def.ShortlistWeights.Academic)
	v.SetDefault("recruitment.shortlist_weights.experience", def.ShortlistWeights.Experience)
	v.SetDefault("recruitment.shortlist_weights.other", def.ShortlistWeights.Other)
	v.SetDefault("recruitment.shortlist_passing_score", def.ShortlistPassingScore)
	v.SetDefault("recruitment.test_passing_marks", def.TestPassingMarks)
	v.SetDefault("recruitment.prior_weight", def.PriorWeight)
	v.SetDefault("recruitment.interview_weight", def.InterviewWeight)
	v.SetDefault("recruitment.min_committee_members", def.Rules.MinCommitteeMembers)
	v.SetDefault("recruitment.min_verified_references", def.Rules.MinVerifiedReferences)
	v.SetDefault("recruitment.required_documents", def.RequiredDocuments)
	v.SetDefault("recruitment.store_timeout", def.StoreTimeout)
	for kind, prefix := range DefaultSequencePrefixes() {
		v.SetDefault("recruitment.sequence_prefixes."+kind, prefix)
	}

	// Screening defaults
	v.SetDefault("screening.timeout", screening.DefaultPolicy.Timeout)
	v.SetDefault("screening.max_attempts", screening.DefaultPolicy.MaxAttempts)
	v.SetDefault("screening.backoff", screening.DefaultPolicy.Backoff)
	v.SetDefault("screening.latency", 50*time.Millisecond)
}

// bindEnvVars binds the overrides operators set most often under short names
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.path":     "DATABASE_PATH",
		"server.port":       "PORT",
		"logger.level":      "LOG_LEVEL",
		"logger.format":     "LOG_FORMAT",
		"screening.latency": "SCREENING_LATENCY",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return err
		}
	}
	return nil
}

// DefaultSequencePrefixes returns the document number prefix per sequence kind
func DefaultSequencePrefixes() map[string]string {
	return map[string]string{
		engine.SequenceCase:     "RC",
		engine.SequenceReport:   "SR",
		engine.SequenceOffer:    "OF",
		engine.SequenceContract: "CT",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must not be negative")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	if err := c.Recruitment.Engine().Validate(); err != nil {
		return fmt.Errorf("recruitment: %w", err)
	}
	for kind := range DefaultSequencePrefixes() {
		if strings.TrimSpace(c.Recruitment.SequencePrefixes[kind]) == "" {
			return fmt.Errorf("recruitment.sequence_prefixes.%s is required", kind)
		}
	}

	if err := c.Screening.validate(); err != nil {
		return fmt.Errorf("screening: %w", err)
	}

	return nil
}

func (c ScreeningConfig) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if c.Backoff < 0 || c.Latency < 0 {
		return fmt.Errorf("backoff and latency must not be negative")
	}
	if c.Latency >= c.Timeout {
		return fmt.Errorf("latency %s leaves no time within timeout %s", c.Latency, c.Timeout)
	}
	return nil
}

// Engine converts the recruitment section into the engine configuration
func (c RecruitmentConfig) Engine() engine.Config {
	return engine.Config{
		ShortlistWeights: scoring.ShortlistWeights{
			Academic:   c.ShortlistWeights.Academic,
			Experience: c.ShortlistWeights.Experience,
			Other:      c.ShortlistWeights.Other,
		},
		ShortlistPassingScore: c.ShortlistPassingScore,
		TestPassingMarks:      c.TestPassingMarks,
		PriorWeight:           c.PriorWeight,
		InterviewWeight:       c.InterviewWeight,
		Rules: stage.Rules{
			MinCommitteeMembers:   c.MinCommitteeMembers,
			MinVerifiedReferences: c.MinVerifiedReferences,
		},
		RequiredDocuments: c.RequiredDocuments,
		StoreTimeout:      c.StoreTimeout,
	}
}

// Policy returns the retry policy of the resilient screener
func (c ScreeningConfig) Policy() screening.Policy {
	return screening.Policy{
		Timeout:     c.Timeout,
		MaxAttempts: c.MaxAttempts,
		Backoff:     c.Backoff,
	}
}

// Connection returns the database connection settings
func (c DatabaseConfig) Connection() database.Config {
	return database.Config{
		Path:            c.Path,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		BusyTimeout:     c.BusyTimeout,
	}
}

// Options returns the logger construction settings
func (c LoggerConfig) Options() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Level,
		OutputPath: c.OutputPath,
		Format:     c.Format,
	}
}
