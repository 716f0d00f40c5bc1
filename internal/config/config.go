package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"flujo/internal/aggregate"
	"flujo/internal/core"
	"flujo/internal/ingest"
	"flujo/internal/log"
)

type Config struct {
	// HTTP Server
	Port           string
	RateLimitRPM   int
	TrustedProxies []string

	// Snapshot persistence
	SnapshotBackend string
	SQLiteDBPath    string
	AutosaveDelay   time.Duration

	// Ingest
	FieldMapping           string
	PeriodFormat           string
	PeriodSerialCorrection int

	// Movement type labels
	TypeOpening  string
	TypeIncome   string
	TypeExpense  string
	TypeTransfer string

	// Reporting
	AxisFrom        string
	AxisTo          string
	ParetoThreshold float64
	ReportCacheSize int
	ReportCacheTTL  time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleImportRange   string
	GoogleMirrorSheet   string
	MirrorInterval      time.Duration

	LogLevel string
}

func Load() *Config {
	types := core.DefaultTypes()
	return &Config{
		Port:           getEnv("PORT", "8080"),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_RPM", 120),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		SnapshotBackend: getEnv("SNAPSHOT_BACKEND", "memory"),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/flujo.db"),
		AutosaveDelay:   getEnvDuration("AUTOSAVE_DELAY", 300*time.Millisecond),

		FieldMapping:           getEnv("FIELD_MAPPING", ingest.MappingCashFlow),
		PeriodFormat:           getEnv("PERIOD_FORMAT", ""),
		PeriodSerialCorrection: getEnvInt("PERIOD_SERIAL_CORRECTION", core.DefaultSerialCorrection),

		TypeOpening:  getEnv("TYPE_OPENING", types.Opening),
		TypeIncome:   getEnv("TYPE_INCOME", types.Income),
		TypeExpense:  getEnv("TYPE_EXPENSE", types.Expense),
		TypeTransfer: getEnv("TYPE_TRANSFER", types.Transfer),

		AxisFrom:        getEnv("AXIS_FROM", ""),
		AxisTo:          getEnv("AXIS_TO", ""),
		ParetoThreshold: getEnvFloat("PARETO_THRESHOLD", 0.8),
		ReportCacheSize: getEnvInt("REPORT_CACHE_SIZE", 64),
		ReportCacheTTL:  getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "flujo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_changed"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleImportRange:   getEnv("GOOGLE_IMPORT_RANGE", "Movimientos!A:I"),
		GoogleMirrorSheet:   getEnv("GOOGLE_MIRROR_SHEET", "Mirror"),
		MirrorInterval:      getEnvDuration("MIRROR_INTERVAL", 15*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Types returns the configured movement type labels.
func (c *Config) Types() core.TypeSet {
	return core.TypeSet{
		Opening:  c.TypeOpening,
		Income:   c.TypeIncome,
		Expense:  c.TypeExpense,
		Transfer: c.TypeTransfer,
	}
}

// Mapping resolves the field mapping with the period overrides applied.
func (c *Config) Mapping() (ingest.FieldMapping, error) {
	fm, err := ingest.MappingByName(c.FieldMapping)
	if err != nil {
		return ingest.FieldMapping{}, err
	}
	if c.PeriodFormat != "" {
		f, err := core.ParsePeriodFormat(c.PeriodFormat)
		if err != nil {
			return ingest.FieldMapping{}, err
		}
		fm.Parser.Format = f
	}
	fm.Parser.SerialCorrection = c.PeriodSerialCorrection
	return fm, nil
}

// Axis returns the fixed period axis from AXIS_FROM to AXIS_TO, both
// "YYYY-MM". It is nil when neither is set.
func (c *Config) Axis() ([]core.PeriodKey, error) {
	from, to := strings.TrimSpace(c.AxisFrom), strings.TrimSpace(c.AxisTo)
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("AXIS_FROM and AXIS_TO must be set together")
	}
	parser := core.PeriodParser{Format: core.FormatISO}
	first, err := parser.Parse(from)
	if err != nil {
		return nil, fmt.Errorf("AXIS_FROM: %w", err)
	}
	last, err := parser.Parse(to)
	if err != nil {
		return nil, fmt.Errorf("AXIS_TO: %w", err)
	}
	axis := aggregate.Range(first.Key(), last.Key())
	if len(axis) == 0 {
		return nil, fmt.Errorf("AXIS_FROM %s is after AXIS_TO %s", from, to)
	}
	return axis, nil
}

// Threshold returns the Pareto threshold as a decimal.
func (c *Config) Threshold() decimal.Decimal {
	return decimal.NewFromFloat(c.ParetoThreshold)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.SnapshotBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid snapshot backend '%s': must be one of [memory sqlite]", c.SnapshotBackend))
	}

	if _, err := c.Mapping(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid field mapping: %v", err))
	}

	labels := map[string]string{
		"TYPE_OPENING": c.TypeOpening, "TYPE_INCOME": c.TypeIncome,
		"TYPE_EXPENSE": c.TypeExpense, "TYPE_TRANSFER": c.TypeTransfer,
	}
	for _, key := range []string{"TYPE_OPENING", "TYPE_INCOME", "TYPE_EXPENSE", "TYPE_TRANSFER"} {
		if strings.TrimSpace(labels[key]) == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", key))
		}
	}

	if _, err := c.Axis(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid period axis: %v", err))
	}
	if c.ParetoThreshold <= 0 || c.ParetoThreshold > 1 {
		errors = append(errors, fmt.Sprintf("invalid pareto threshold %v: must be in (0, 1]", c.ParetoThreshold))
	}
	if c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}
	if c.MirrorInterval <= 0 {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be positive", c.MirrorInterval))
	}

	if c.AutosaveDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid autosave delay %v: must not be negative", c.AutosaveDelay))
	}
	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleImportRange == "" {
		errors = append(errors, "GOOGLE_IMPORT_RANGE cannot be empty when a spreadsheet is configured")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// SheetsEnabled reports whether a spreadsheet is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
