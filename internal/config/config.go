package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/checkout"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the resolved configuration of the register and display processes.
// Empty RedisAddr, KafkaBrokers or DB.Host switch the matching integration off.
type Config struct {
	HTTPPort           string
	GRPCPort           string
	BackendURL         string
	DisplayAddr        string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	Checkout           checkout.Config
	RedisAddr          string
	KafkaBrokers       []string
	DB                 repository.Credentials
	ScannerStdin       bool
	LogLevel           string
}

// FileConfig mirrors the YAML file. Unset keys keep their defaults.
type FileConfig struct {
	RegisterID     string         `yaml:"register_id"`
	HTTPPort       string         `yaml:"http_port"`
	GRPCPort       string         `yaml:"grpc_port"`
	BackendURL     string         `yaml:"backend_url"`
	DisplayAddr    string         `yaml:"display_addr"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	TaxRate        string         `yaml:"tax_rate"`
	TipEnabled     *bool          `yaml:"tip_enabled"`
	TipSuggestions []int64        `yaml:"tip_suggestions"`
	ApprovedDelay  *time.Duration `yaml:"approved_delay"`
	SuccessDelay   *time.Duration `yaml:"success_delay"`
	RedisAddr      string         `yaml:"redis_addr"`
	KafkaBrokers   []string       `yaml:"kafka_brokers"`
	Database       DatabaseFile   `yaml:"database"`
	ScannerStdin   *bool          `yaml:"scanner_stdin"`
	LogLevel       string         `yaml:"log_level"`
}

type DatabaseFile struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	MigrationsPath string `yaml:"migrations_path"`
}

func Default() *Config {
	return &Config{
		HTTPPort:           "8080",
		GRPCPort:           "50060",
		BackendURL:         "http://localhost:5000",
		DisplayAddr:        "localhost:50060",
		RequestTimeout:     10 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
		Checkout:           checkout.DefaultConfig(),
		DB: repository.Credentials{
			Port:              5432,
			User:              "postgres",
			Password:          "postgres",
			DBName:            "pos",
			MigrationsDirPath: "./internal/repository/migrations",
		},
		ScannerStdin: true,
		LogLevel:     "info",
	}
}

// Load reads the optional YAML file named by POS_CONFIG and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()
	if path := getEnv("POS_CONFIG", ""); path != "" {
		fc, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.apply(fc); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ReadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fc, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file: %w", err)
	}
	return fc, nil
}

func (c *Config) apply(fc FileConfig) error {
	setString(&c.Checkout.RegisterID, fc.RegisterID)
	setString(&c.HTTPPort, fc.HTTPPort)
	setString(&c.GRPCPort, fc.GRPCPort)
	setString(&c.BackendURL, fc.BackendURL)
	setString(&c.DisplayAddr, fc.DisplayAddr)
	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.RequestTimeout > 0 {
		c.RequestTimeout = fc.RequestTimeout
		c.Checkout.CallTimeout = fc.RequestTimeout
	}
	if fc.TaxRate != "" {
		rate, err := parseTaxRate(fc.TaxRate)
		if err != nil {
			return err
		}
		c.Checkout.TaxRate = rate
	}
	if fc.TipEnabled != nil {
		c.Checkout.TipEnabled = *fc.TipEnabled
	}
	if len(fc.TipSuggestions) > 0 {
		c.Checkout.TipSuggestions = fc.TipSuggestions
	}
	if fc.ApprovedDelay != nil {
		c.Checkout.ApprovedDelay = *fc.ApprovedDelay
	}
	if fc.SuccessDelay != nil {
		c.Checkout.SuccessDelay = *fc.SuccessDelay
	}
	if len(fc.KafkaBrokers) > 0 {
		c.KafkaBrokers = fc.KafkaBrokers
	}
	if fc.ScannerStdin != nil {
		c.ScannerStdin = *fc.ScannerStdin
	}
	db := fc.Database
	setString(&c.DB.Host, db.Host)
	setString(&c.DB.User, db.User)
	setString(&c.DB.Password, db.Password)
	setString(&c.DB.DBName, db.Name)
	setString(&c.DB.MigrationsDirPath, db.MigrationsPath)
	if db.Port != 0 {
		c.DB.Port = db.Port
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Checkout.RegisterID = getEnv("REGISTER_ID", c.Checkout.RegisterID)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.GRPCPort = getEnv("GRPC_PORT", c.GRPCPort)
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.DisplayAddr = getEnv("DISPLAY_ADDR", c.DisplayAddr)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.DB.Host = getEnv("DB_HOST", c.DB.Host)
	c.DB.User = getEnv("DB_USER", c.DB.User)
	c.DB.Password = getEnv("DB_PASSWORD", c.DB.Password)
	c.DB.DBName = getEnv("DB_NAME", c.DB.DBName)
	c.DB.MigrationsDirPath = getEnv("MIGRATIONS_PATH", c.DB.MigrationsDirPath)
	if v := getEnv("DB_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		c.DB.Port = port
	}

	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.KafkaBrokers = splitList(v)
	}
	if v := getEnv("TAX_RATE", ""); v != "" {
		rate, err := parseTaxRate(v)
		if err != nil {
			return err
		}
		c.Checkout.TaxRate = rate
	}
	if v := getEnv("TIP_ENABLED", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TIP_ENABLED: %w", err)
		}
		c.Checkout.TipEnabled = b
	}
	if v := getEnv("TIP_SUGGESTIONS", ""); v != "" {
		var tips []int64
		for _, s := range splitList(v) {
			pct, err := strconv.ParseInt(s, 10, 64)
			if err != nil || pct < 0 {
				return fmt.Errorf("invalid TIP_SUGGESTIONS entry %q", s)
			}
			tips = append(tips, pct)
		}
		c.Checkout.TipSuggestions = tips
	}
	if v := getEnv("REQUEST_TIMEOUT", ""); v != "" {
		dur, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = dur
		c.Checkout.CallTimeout = dur
	}
	if v := getEnv("SCANNER_STDIN", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCANNER_STDIN: %w", err)
		}
		c.ScannerStdin = b
	}
	return nil
}

func parseTaxRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tax rate %q: %w", s, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("tax rate %s out of range [0, 1)", rate)
	}
	return rate, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
