/*
config.go - YAML configuration for the payroll engine

PURPOSE:

	Loads server, batch, and calculation-rule settings from a YAML file so
	that pay-rule tuning (overtime hours, proration window, variance
	thresholds, seasonal bonus dates) never requires a code change. Every
	field has a default matching the engine's built-in rules, so an empty
	or absent file yields a working configuration.

CONVERSION:

	The config package owns the YAML shape only. Converters (Rules,
	Defaults, Thresholds, Calendar) produce the typed values the engine
	consumes, keeping payroll free of file-format concerns.

EXAMPLE FILE:

	server:
	  port: 8080
	  db: payroll.db
	batch:
	  workers: 8
	rules:
	  cutoff_day: 20
	  fixed_overtime_hours: 20
	  overtime_multiplier: 1.5
	  base_salary_floor: 2000000
	  initial_position_rate: 0.8
	  initial_position_window_days: 365
	  annual_incentive_month: 1
	defaults:
	  grade: GRD11
	  job_profile: JP-GEN
	  competency_tier: basic
	variance:
	  total_change_ratio: 0.2
	  position_allowance_delta: 50000
	seasonal_bonus_dates:
	  2024: "2024-01-12"
	  2025: "2025-01-28"

SEE ALSO:
  - payroll/calculator.go: Rules consumed by the pipeline
  - cmd/server: Flag -config selecting the file
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// YAML SHAPE
// =============================================================================

type Config struct {
	Server             ServerConfig   `yaml:"server"`
	Batch              BatchConfig    `yaml:"batch"`
	Rules              RulesConfig    `yaml:"rules"`
	Defaults           DefaultsConfig `yaml:"defaults"`
	Variance           VarianceConfig `yaml:"variance"`
	SeasonalBonusDates map[int]string `yaml:"seasonal_bonus_dates"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	DB   string `yaml:"db"`
}

type BatchConfig struct {
	Workers int `yaml:"workers"`
}

type RulesConfig struct {
	CutoffDay                 int     `yaml:"cutoff_day"`
	FixedOvertimeHours        int     `yaml:"fixed_overtime_hours"`
	OvertimeMultiplier        float64 `yaml:"overtime_multiplier"`
	BaseSalaryFloor           int64   `yaml:"base_salary_floor"`
	InitialPositionRate       float64 `yaml:"initial_position_rate"`
	InitialPositionWindowDays int     `yaml:"initial_position_window_days"`
	AnnualIncentiveMonth      int     `yaml:"annual_incentive_month"`
}

type DefaultsConfig struct {
	Grade          string `yaml:"grade"`
	JobProfile     string `yaml:"job_profile"`
	CompetencyTier string `yaml:"competency_tier"`
}

type VarianceConfig struct {
	TotalChangeRatio       float64 `yaml:"total_change_ratio"`
	PositionAllowanceDelta int64   `yaml:"position_allowance_delta"`
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the built-in configuration used when no file is given.
// The rule values mirror payroll.DefaultRules.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, DB: "payroll.db"},
		Batch:  BatchConfig{Workers: 4},
		Rules: RulesConfig{
			CutoffDay:                 20,
			FixedOvertimeHours:        20,
			OvertimeMultiplier:        1.5,
			BaseSalaryFloor:           2_000_000,
			InitialPositionRate:       0.8,
			InitialPositionWindowDays: 365,
			AnnualIncentiveMonth:      1,
		},
		Defaults: DefaultsConfig{
			Grade:          "GRD11",
			JobProfile:     "JP-GEN",
			CompetencyTier: string(payroll.CompetencyBasic),
		},
		Variance: VarianceConfig{
			TotalChangeRatio:       0.20,
			PositionAllowanceDelta: 50_000,
		},
		SeasonalBonusDates: map[int]string{},
	}
}

// Load reads a YAML file over the defaults. Unset fields keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be >= 1, got %d", c.Batch.Workers)
	}
	if c.Rules.CutoffDay < 1 || c.Rules.CutoffDay > 28 {
		return fmt.Errorf("rules.cutoff_day must be 1..28, got %d", c.Rules.CutoffDay)
	}
	if c.Rules.AnnualIncentiveMonth < 1 || c.Rules.AnnualIncentiveMonth > 12 {
		return fmt.Errorf("rules.annual_incentive_month must be 1..12, got %d", c.Rules.AnnualIncentiveMonth)
	}
	for year, raw := range c.SeasonalBonusDates {
		if _, err := payroll.ParseDate(raw); err != nil {
			return fmt.Errorf("seasonal_bonus_dates[%d]: %w", year, err)
		}
	}
	return nil
}

// =============================================================================
// CONVERTERS
// =============================================================================

// EngineRules converts the rules section to the calculator's Rules.
func (c *Config) EngineRules() payroll.Rules {
	return payroll.Rules{
		CutoffDay:                 c.Rules.CutoffDay,
		FixedOvertimeHours:        int64(c.Rules.FixedOvertimeHours),
		OvertimeMultiplier:        decimal.NewFromFloat(c.Rules.OvertimeMultiplier),
		BaseSalaryFloor:           payroll.Won(c.Rules.BaseSalaryFloor),
		InitialPositionRate:       decimal.NewFromFloat(c.Rules.InitialPositionRate),
		InitialPositionWindowDays: c.Rules.InitialPositionWindowDays,
		AnnualIncentiveMonth:      time.Month(c.Rules.AnnualIncentiveMonth),
	}
}

// ProfileDefaults converts the defaults section to profile-resolution
// defaults.
func (c *Config) ProfileDefaults() payroll.Defaults {
	return payroll.Defaults{
		Grade:          payroll.GradeCode(c.Defaults.Grade),
		JobProfile:     payroll.JobProfileID(c.Defaults.JobProfile),
		CompetencyTier: payroll.CompetencyTier(c.Defaults.CompetencyTier),
	}
}

// Thresholds converts the variance section to validator thresholds.
func (c *Config) Thresholds() payroll.VarianceThresholds {
	return payroll.VarianceThresholds{
		TotalChangeRatio:       decimal.NewFromFloat(c.Variance.TotalChangeRatio),
		PositionAllowanceDelta: payroll.Won(c.Variance.PositionAllowanceDelta),
	}
}

// Calendar builds the seasonal bonus calendar from configured dates.
// Dates are validated at load time; parse errors here cannot happen for a
// loaded config.
func (c *Config) Calendar() payroll.HolidayCalendar {
	cal := payroll.FixedCalendar{}
	for year, raw := range c.SeasonalBonusDates {
		d, err := payroll.ParseDate(raw)
		if err != nil {
			continue
		}
		cal[year] = d
	}
	return cal
}
