package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values.
type Config struct {
	Env            string
	HTTPPort       string
	Secret         string
	TokenTTL       time.Duration
	DatabaseDriver string
	DatabaseDSN    string
	LogLevel       string
	MetricsEnabled bool
	SeedDemo       bool
	DrugCatalogCSV string
	CORSOrigins    []string
}

// Development reports whether the service runs with developer defaults.
func (c Config) Development() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Load reads configuration from environment variables with reasonable defaults.
// When CONFIG_FILE points at a yaml/json/toml file its keys are read first and
// environment variables still take precedence.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("SECRET", "dev_secret")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("SEED_DEMO", false)
	v.SetDefault("DRUG_CATALOG_CSV", "")
	v.SetDefault("CORS_ORIGINS", "*")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("unable to read config file %s: %v", path, err)
		}
	}

	cfg := Config{
		Env:            v.GetString("APP_ENV"),
		HTTPPort:       v.GetString("HTTP_PORT"),
		Secret:         v.GetString("SECRET"),
		TokenTTL:       v.GetDuration("TOKEN_TTL"),
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		SeedDemo:       v.GetBool("SEED_DEMO"),
		DrugCatalogCSV: v.GetString("DRUG_CATALOG_CSV"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
	}

	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = defaultDSN(v, cfg.DatabaseDriver)
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", cfg.HTTPPort)
		cfg.HTTPPort = "8080"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	return cfg
}

func defaultDSN(v *viper.Viper, driver string) string {
	if driver != "pgx" && driver != "postgres" {
		return "file:pharmacy.db?_pragma=foreign_keys(1)"
	}
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "pharmacy")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		v.GetString("DB_USER"), v.GetString("DB_PASSWORD"), v.GetString("DB_HOST"), v.GetString("DB_PORT"), v.GetString("DB_NAME"))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
