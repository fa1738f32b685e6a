package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rzzdr/options-risk-engine/internal/calendar"
	"github.com/rzzdr/options-risk-engine/internal/option"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/internal/volatility"
	"github.com/rzzdr/options-risk-engine/pkg/models"
)

// Config for the whole application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	API        APIConfig        `mapstructure:"api"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Volatility VolatilityConfig `mapstructure:"volatility"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// General application configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Configuration for the API server
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Requests per second per client; zero disables limiting
	RateLimit float64    `mapstructure:"rate_limit"`
	RateBurst int        `mapstructure:"rate_burst"`
	CORS      CORSConfig `mapstructure:"cors"`
}

// CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Market defaults used when a request or position file does not carry them
type PricingConfig struct {
	Rate          float64 `mapstructure:"rate"`
	DividendYield float64 `mapstructure:"dividend_yield"`
	// AmericanPuts enables the put-call transformation for American puts
	AmericanPuts bool `mapstructure:"american_puts"`
}

// Trading calendar configuration
type CalendarConfig struct {
	TradingDaysPerYear int      `mapstructure:"trading_days_per_year"`
	Holidays           []string `mapstructure:"holidays"`
}

// Configuration for historical volatility estimation
type VolatilityConfig struct {
	Estimator      string  `mapstructure:"estimator"`
	Window         int     `mapstructure:"window"`
	PeriodsPerYear float64 `mapstructure:"periods_per_year"`
}

// Configuration for risk reports
type RiskConfig struct {
	Workers       int     `mapstructure:"workers"`
	ProfileMin    float64 `mapstructure:"profile_min"`
	ProfileMax    float64 `mapstructure:"profile_max"`
	ProfileSteps  int     `mapstructure:"profile_steps"`
	VaRConfidence float64 `mapstructure:"var_confidence"`
	VaRLookback   int     `mapstructure:"var_lookback"`
}

// Configuration for metrics
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Interval   time.Duration    `mapstructure:"interval"`
}

// Configuration for Prometheus metrics
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads the configuration file at path, or ./config/config.yaml when
// path is empty, and applies OPTRISK_ environment overrides. A missing
// default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("OPTRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "options-risk-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "10s")
	v.SetDefault("api.shutdown_timeout", "30s")
	v.SetDefault("api.rate_limit", 50)
	v.SetDefault("api.rate_burst", 100)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type"})

	// Pricing defaults
	v.SetDefault("pricing.rate", 0.05)
	v.SetDefault("pricing.dividend_yield", 0.0)
	v.SetDefault("pricing.american_puts", false)

	// Calendar defaults
	v.SetDefault("calendar.trading_days_per_year", calendar.DefaultTradingDaysPerYear)
	v.SetDefault("calendar.holidays", []string{})

	// Volatility defaults
	v.SetDefault("volatility.estimator", "parkinson")
	v.SetDefault("volatility.window", 20)
	v.SetDefault("volatility.periods_per_year", 252)

	// Risk defaults
	v.SetDefault("risk.workers", 4)
	v.SetDefault("risk.profile_min", 0.5)
	v.SetDefault("risk.profile_max", 1.5)
	v.SetDefault("risk.profile_steps", 101)
	v.SetDefault("risk.var_confidence", 0.99)
	v.SetDefault("risk.var_lookback", 250)

	// Metrics defaults
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.port", 9090)
	v.SetDefault("metrics.interval", "15s")
}

// Validate checks the values that cannot be defaulted away
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	if c.Calendar.TradingDaysPerYear <= 0 {
		return fmt.Errorf("calendar.trading_days_per_year must be positive, got %d", c.Calendar.TradingDaysPerYear)
	}
	if _, err := calendar.ParseHolidays(c.Calendar.Holidays); err != nil {
		return fmt.Errorf("calendar.holidays: %w", err)
	}
	if _, err := c.Volatility.Parse(); err != nil {
		return fmt.Errorf("volatility.estimator: %w", err)
	}
	if c.Volatility.Window < 1 || c.Volatility.PeriodsPerYear <= 0 {
		return fmt.Errorf("volatility window and periods_per_year must be positive")
	}
	if !(c.Risk.VaRConfidence > 0 && c.Risk.VaRConfidence < 1) {
		return fmt.Errorf("risk.var_confidence must be in (0, 1), got %v", c.Risk.VaRConfidence)
	}
	return nil
}

// Parse returns the configured estimator
func (c VolatilityConfig) Parse() (volatility.Estimator, error) {
	return volatility.ParseEstimator(c.Estimator)
}

// Build returns the trading calendar described by c
func (c CalendarConfig) Build() (*calendar.Weekday, error) {
	holidays, err := calendar.ParseHolidays(c.Holidays)
	if err != nil {
		return nil, err
	}
	return calendar.NewWeekday(
		calendar.WithTradingDaysPerYear(c.TradingDaysPerYear),
		calendar.WithHolidays(holidays...),
	), nil
}

// Registry returns the valuation models enabled by c
func (c PricingConfig) Registry() *pricing.Registry {
	r := pricing.DefaultRegistry()
	if c.AmericanPuts {
		// both keys are valid, Register cannot fail
		_ = r.Register(models.Put, models.ExerciseAmerican, pricing.AmericanPutTransform)
	}
	return r
}

// OptionSettings returns the settings every option built by the
// application receives
func (c *Config) OptionSettings() ([]option.Setting, error) {
	cal, err := c.Calendar.Build()
	if err != nil {
		return nil, err
	}
	return []option.Setting{
		option.WithCalendar(cal),
		option.WithRegistry(c.Pricing.Registry()),
	}, nil
}
