package config

import (
	"os"
	"strings"
	"testing"
)

// TestLoadConfig_Defaults verifies that defaults are loaded and the DSN is
// constructed.
func TestLoadConfig_Defaults(t *testing.T) {
	// Clear relevant env vars to ensure defaults are used
	for _, k := range []string{
		"SERVER_PORT",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_SSLMODE",
		"FLEX_BASE_URL", "FLEX_TOKEN", "FLEX_QUERY_ID", "FLEX_POLL_MAX_RETRIES",
		"LEDGER_NATIVE_TZ", "LEDGER_REPORTING_TZ", "LEDGER_BASE_CURRENCY", "LEDGER_TOLERANCE",
	} {
		_ = os.Unsetenv(k)
	}

	LoadConfig()

	if AppConfig.Server.Port != "8080" {
		t.Fatalf("expected default SERVER_PORT=8080, got %q", AppConfig.Server.Port)
	}
	if AppConfig.Postgres.Host != "localhost" || AppConfig.Postgres.Port != 5432 || AppConfig.Postgres.DBName != "navledger" {
		t.Fatalf("unexpected postgres defaults: %+v", AppConfig.Postgres)
	}
	dsn := AppConfig.Postgres.URL
	if !strings.HasPrefix(dsn, "postgres://") || !strings.Contains(dsn, "navledger") {
		t.Fatalf("unexpected DSN: %q", dsn)
	}
	if AppConfig.Ledger.NativeTZ != "America/New_York" || AppConfig.Ledger.ReportingTZ != "Asia/Hong_Kong" {
		t.Fatalf("unexpected timezone defaults: %+v", AppConfig.Ledger)
	}
	if AppConfig.Ledger.BaseCurrency != "HKD" || AppConfig.Ledger.ToleranceStr != "0.05" {
		t.Fatalf("unexpected ledger defaults: %+v", AppConfig.Ledger)
	}
	if AppConfig.Ledger.OptionMultiplier != 100 {
		t.Fatalf("unexpected multiplier: %d", AppConfig.Ledger.OptionMultiplier)
	}
	if AppConfig.Flex.PollMaxRetries != 8 || AppConfig.Flex.PollInitialSeconds != 5 {
		t.Fatalf("unexpected flex poll defaults: %+v", AppConfig.Flex)
	}
}

// TestLoadConfig_EnvOverride verifies environment variables take precedence
// over defaults.
func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LEDGER_BASE_CURRENCY", "USD")
	t.Setenv("FLEX_QUERY_ID", "123456")

	LoadConfig()

	if AppConfig.Server.Port != "9090" {
		t.Fatalf("override failed, got %q", AppConfig.Server.Port)
	}
	if AppConfig.Ledger.BaseCurrency != "USD" {
		t.Fatalf("override failed, got %q", AppConfig.Ledger.BaseCurrency)
	}
	if AppConfig.Flex.QueryID != "123456" {
		t.Fatalf("override failed, got %q", AppConfig.Flex.QueryID)
	}
}
