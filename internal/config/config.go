package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	applog "dayplan/internal/log"
)

type Config struct {
	// HTTP Server
	Port              string
	CORSAllowedOrigin string
	RateLimitPerMin   int
	ShutdownTimeout   time.Duration

	// Database
	DBDriver       string
	SQLiteDBPath   string
	MySQLHost      string
	MySQLPort      int
	MySQLUser      string
	MySQLPassword  string
	MySQLDatabase  string
	DBMaxOpenConns int

	// AMQP change events; empty URL disables them
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Google Sheets export; empty spreadsheet id disables it
	GoogleSpreadsheetID      string
	GoogleExportSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DBDriver:     strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/dayplan.db"),
		// Railway-style names win over the underscored ones.
		MySQLHost:      getEnvAny([]string{"MYSQLHOST", "MYSQL_HOST"}, "localhost"),
		MySQLPort:      getEnvIntAny([]string{"MYSQLPORT", "MYSQL_PORT"}, 3306),
		MySQLUser:      getEnvAny([]string{"MYSQLUSER", "MYSQL_USER"}, "root"),
		MySQLPassword:  getEnvAny([]string{"MYSQLPASSWORD", "MYSQL_PASSWORD"}, ""),
		MySQLDatabase:  getEnvAny([]string{"MYSQLDATABASE", "MYSQL_DATABASE"}, "daily_plan_db"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 1),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "dayplan"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "dayplan.changes"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleExportSheetName:    getEnv("GOOGLE_EXPORT_SHEET_NAME", "Export"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnvAny([]string{"GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"}, ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// AMQPEnabled reports whether change events should be published.
func (c *Config) AMQPEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// SheetsEnabled reports whether the spreadsheet export is configured.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case "sqlite":
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			errors = append(errors, "SQLite database path cannot be empty when using the sqlite driver")
		}
	case "mysql":
		if strings.TrimSpace(c.MySQLHost) == "" {
			errors = append(errors, "MySQL host cannot be empty when using the mysql driver")
		}
		if strings.TrimSpace(c.MySQLDatabase) == "" {
			errors = append(errors, "MySQL database cannot be empty when using the mysql driver")
		}
		if c.MySQLPort < 1 || c.MySQLPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid MySQL port %d: must be between 1 and 65535", c.MySQLPort))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be one of [sqlite mysql]", c.DBDriver))
	}

	if c.DBMaxOpenConns < 1 {
		errors = append(errors, fmt.Sprintf("invalid max open connections %d: must be at least 1", c.DBMaxOpenConns))
	}

	if c.AMQPEnabled() {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets export")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.RateLimitPerMin < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be zero (disabled) or positive", c.RateLimitPerMin))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAny returns the first non-empty variable among keys.
func getEnvAny(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	return getEnvIntAny([]string{key}, defaultValue)
}

func getEnvIntAny(keys []string, defaultValue int) int {
	if value := getEnvAny(keys, ""); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
