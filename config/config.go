package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dratek/powerplan-go/logging"
	"github.com/spf13/viper"
)

type AppConfigApi struct {
	Address string
	Port    int16
	// Session cookie signing key, must be set for the refresh endpoint.
	SessionSecret string `mapstructure:"session_secret"`
	// If not assigned, the server will serve embedded files.
	// If assigned, the server will serve files from the directory,
	// that must contain a "static" and "templates" directory.
	// This is useful for development.
	WwwDir *string `mapstructure:"www_dir"`
}

type AppConfigDatabase struct {
	Path string
	// How many days data should be stored in database before it gets purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 90
	}
	return *d.DataRetentionDays
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 90
	}
	return *d.BackupRetentionDays
}

type AppConfigMeterCounter struct {
	Name  string
	Topic string
	// One of: grid_import, grid_export, production, battery_in,
	// battery_out, cost, compensation, excluded
	Kind string
}

type AppConfigMeterBattery struct {
	Name     string
	SocTopic string `mapstructure:"soc_topic"`
}

type AppConfigMeter struct {
	Broker    string
	Port      int16
	Username  string
	Password  string
	Counters  []AppConfigMeterCounter
	Batteries []AppConfigMeterBattery
}

type AppConfigPricing struct {
	// "spot" prices from the day-ahead auction, "fixed" from the
	// contracted prices below.
	Mode string
	// Billing currency, "CZK" or "EUR". The auction clears in EUR.
	Currency string
	// Distribution area: "cez", "egd" or "pre"
	Area string
	// Distribution rate class, e.g. "d57d"
	RateClass string `mapstructure:"rate_class"`
	// Tariff command code, e.g. "405", or "dynamic" for the signal-driven schedule
	TariffCode string `mapstructure:"tariff_code"`
	// CEZ switching region for the dynamic schedule, e.g. "stred"
	CezRegion string `mapstructure:"cez_region"`
	// Supplier fee added to the purchase price, per kWh
	FeeCost float64 `mapstructure:"fee_cost"`
	// Supplier fee subtracted from the export credit, per kWh
	FeeCompensation float64 `mapstructure:"fee_compensation"`
	// Contracted price per kWh in the high band, fixed mode only
	FixedPriceT1 float64 `mapstructure:"fixed_price_t1"`
	// Contracted price per kWh in the low band, fixed mode only
	FixedPriceT2 float64 `mapstructure:"fixed_price_t2"`
	// Collapse the auction feed to hourly prices
	Hourly bool
}

type AppConfigBatterySpec struct {
	CapacityKwh      float64 `mapstructure:"capacity_kwh"`      // Battery usable capacity in kWh
	ChargePowerKw    float64 `mapstructure:"charge_power_kw"`   // Maximum charge power in kW
	DischargePowerKw float64 `mapstructure:"discharge_power_kw"` // Maximum discharge power in kW
	SocMinPercent    float64 `mapstructure:"soc_min"`           // Minimum state of charge in percent
	SocMaxPercent    float64 `mapstructure:"soc_max"`           // Maximum state of charge in percent
	AmortizationCost float64 `mapstructure:"amortization_cost"` // Cost of cycling the battery, per kWh
}

type AppConfigOptimizer struct {
	Url            string
	ApiKey         string `mapstructure:"api_key"`
	TimeoutSeconds *int   `mapstructure:"timeout_seconds"`
}

func (o AppConfigOptimizer) GetTimeout() time.Duration {
	if o.TimeoutSeconds == nil {
		return 20 * time.Second
	}
	return time.Duration(*o.TimeoutSeconds) * time.Second
}

type AppConfigForecast struct {
	Url    string
	ApiKey string `mapstructure:"api_key"`
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return "JSON"
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return "TEXT"
	}
	return "JSON"
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	// Operating timezone for the planning grid, default: Europe/Prague
	Timezone *string

	Api         AppConfigApi
	Database    AppConfigDatabase
	Meter       AppConfigMeter
	Pricing     AppConfigPricing
	BatterySpec AppConfigBatterySpec `mapstructure:"battery_spec"`
	Optimizer   AppConfigOptimizer
	Forecast    AppConfigForecast
	Logging     AppConfigLogging
}

func (c AppConfig) GetTimezone() string {
	if c.Timezone == nil {
		return "Europe/Prague"
	}
	return *c.Timezone
}

func Load(path string) (*AppConfig, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c AppConfig

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	return &c, nil
}
