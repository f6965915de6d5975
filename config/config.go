package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// It is composed of smaller structs that represent different concerns of
// the system: HTTP server, Postgres, the broker's Flex report API, and the
// ledger/reconciliation parameters.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Flex     FlexConfig
	Ledger   LedgerConfig
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string
}

// PostgresConfig defines connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string // computed DSN used by database/sql
}

// FlexConfig defines how the broker's Flex Web Service is reached and how
// hard the request->poll->download protocol retries before giving up.
//
// Fields:
//   - BaseURL: service endpoint root.
//   - Token: account-scoped access token.
//   - QueryID: the saved month-to-date activity query to execute.
//   - PollInitialSeconds / PollMaxRetries: backoff schedule for the poll
//     loop; exceeding the budget aborts the run with nothing committed.
//   - CacheDir: where the newest downloaded extract is kept (transient;
//     the database is authoritative).
type FlexConfig struct {
	BaseURL            string
	Token              string
	QueryID            string
	PollInitialSeconds int
	PollMaxRetries     int
	CacheDir           string
}

// LedgerConfig defines the reconciliation and session parameters.
//
// Fields:
//   - NativeTZ: the broker's trading timezone; day boundaries are always
//     evaluated here.
//   - ReportingTZ: the observer's timezone, used for display timestamps
//     and the schedule hour.
//   - BaseCurrency: currency the NAV ledger is kept in.
//   - ToleranceStr: reconciliation tolerance in base-currency units; a
//     discrepancy at or below it classifies as zero.
//   - OptionMultiplier: shares per contract for premium/assignment math.
//   - TradeBlockMinutes: trades within this window collapse into one
//     narrative block in the sequenced day.
//   - ScheduleHour: reporting-timezone hour of day the scheduled ingestion
//     fires at.
type LedgerConfig struct {
	NativeTZ          string
	ReportingTZ       string
	BaseCurrency      string
	ToleranceStr      string
	OptionMultiplier  int64
	TradeBlockMinutes int
	ScheduleHour      int
}

// AppConfig is the globally accessible configuration instance, populated
// once via LoadConfig().
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from a .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
func LoadConfig() {
	// Default values
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "navledger")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("FLEX_BASE_URL", "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService")
	viper.SetDefault("FLEX_TOKEN", "")
	viper.SetDefault("FLEX_QUERY_ID", "")
	viper.SetDefault("FLEX_POLL_INITIAL_SECONDS", 5)
	viper.SetDefault("FLEX_POLL_MAX_RETRIES", 8)
	viper.SetDefault("FLEX_CACHE_DIR", "./data/extracts")

	viper.SetDefault("LEDGER_NATIVE_TZ", "America/New_York")
	viper.SetDefault("LEDGER_REPORTING_TZ", "Asia/Hong_Kong")
	viper.SetDefault("LEDGER_BASE_CURRENCY", "HKD")
	viper.SetDefault("LEDGER_TOLERANCE", "0.05")
	viper.SetDefault("LEDGER_OPTION_MULTIPLIER", 100)
	viper.SetDefault("LEDGER_TRADE_BLOCK_MINUTES", 5)
	viper.SetDefault("LEDGER_SCHEDULE_HOUR", 6)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Flex: FlexConfig{
			BaseURL:            viper.GetString("FLEX_BASE_URL"),
			Token:              viper.GetString("FLEX_TOKEN"),
			QueryID:            viper.GetString("FLEX_QUERY_ID"),
			PollInitialSeconds: viper.GetInt("FLEX_POLL_INITIAL_SECONDS"),
			PollMaxRetries:     viper.GetInt("FLEX_POLL_MAX_RETRIES"),
			CacheDir:           viper.GetString("FLEX_CACHE_DIR"),
		},
		Ledger: LedgerConfig{
			NativeTZ:          viper.GetString("LEDGER_NATIVE_TZ"),
			ReportingTZ:       viper.GetString("LEDGER_REPORTING_TZ"),
			BaseCurrency:      viper.GetString("LEDGER_BASE_CURRENCY"),
			ToleranceStr:      viper.GetString("LEDGER_TOLERANCE"),
			OptionMultiplier:  viper.GetInt64("LEDGER_OPTION_MULTIPLIER"),
			TradeBlockMinutes: viper.GetInt("LEDGER_TRADE_BLOCK_MINUTES"),
			ScheduleHour:      viper.GetInt("LEDGER_SCHEDULE_HOUR"),
		},
	}

	// Construct Postgres DSN (used by database/sql)
	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// validateConfig ensures required variables are present and terminates the
// application if they are missing. This avoids unexpected runtime failures
// due to incomplete configuration.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Ledger.NativeTZ == "" {
		missing = append(missing, "LEDGER_NATIVE_TZ")
	}
	if AppConfig.Ledger.ReportingTZ == "" {
		missing = append(missing, "LEDGER_REPORTING_TZ")
	}
	if AppConfig.Ledger.BaseCurrency == "" {
		missing = append(missing, "LEDGER_BASE_CURRENCY")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
