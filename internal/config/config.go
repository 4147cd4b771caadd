package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"ENV"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	KnowledgeBaseURL    string `mapstructure:"KNOWLEDGE_BASE_URL"`
	KnowledgeTimeoutSec int    `mapstructure:"KNOWLEDGE_TIMEOUT_SEC"`
	AnalysisTimeoutSec  int    `mapstructure:"ANALYSIS_TIMEOUT_SEC"`

	// Scoring weight overrides. Zero means "use the built-in default".
	WeightPrimary           float64 `mapstructure:"WEIGHT_PRIMARY"`
	WeightSecondary         float64 `mapstructure:"WEIGHT_SECONDARY"`
	WeightSeverityBand      float64 `mapstructure:"WEIGHT_SEVERITY_BAND"`
	WeightRapidOnsetBonus   float64 `mapstructure:"WEIGHT_RAPID_ONSET_BONUS"`
	WeightProlongedPenalty  float64 `mapstructure:"WEIGHT_PROLONGED_PENALTY"`
	WeightSmellTasteBoost   float64 `mapstructure:"WEIGHT_SMELL_TASTE_BOOST"`
	WeightSmellTastePenalty float64 `mapstructure:"WEIGHT_SMELL_TASTE_PENALTY"`
	WeightAllergyComboBoost float64 `mapstructure:"WEIGHT_ALLERGY_COMBO_BOOST"`
	ReportThreshold         float64 `mapstructure:"REPORT_THRESHOLD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("KNOWLEDGE_TIMEOUT_SEC", 10)
	v.SetDefault("ANALYSIS_TIMEOUT_SEC", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("MIGRATIONS_PATH")
	v.BindEnv("KNOWLEDGE_BASE_URL")
	v.BindEnv("KNOWLEDGE_TIMEOUT_SEC")
	v.BindEnv("ANALYSIS_TIMEOUT_SEC")
	v.BindEnv("WEIGHT_PRIMARY")
	v.BindEnv("WEIGHT_SECONDARY")
	v.BindEnv("WEIGHT_SEVERITY_BAND")
	v.BindEnv("WEIGHT_RAPID_ONSET_BONUS")
	v.BindEnv("WEIGHT_PROLONGED_PENALTY")
	v.BindEnv("WEIGHT_SMELL_TASTE_BOOST")
	v.BindEnv("WEIGHT_SMELL_TASTE_PENALTY")
	v.BindEnv("WEIGHT_ALLERGY_COMBO_BOOST")
	v.BindEnv("REPORT_THRESHOLD")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.KnowledgeTimeoutSec <= 0 {
		return nil, fmt.Errorf("KNOWLEDGE_TIMEOUT_SEC must be positive, got %d", cfg.KnowledgeTimeoutSec)
	}
	if cfg.AnalysisTimeoutSec <= 0 {
		return nil, fmt.Errorf("ANALYSIS_TIMEOUT_SEC must be positive, got %d", cfg.AnalysisTimeoutSec)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) KnowledgeTimeout() time.Duration {
	return time.Duration(c.KnowledgeTimeoutSec) * time.Second
}

func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.AnalysisTimeoutSec) * time.Second
}
