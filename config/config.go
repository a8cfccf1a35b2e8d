package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "sjsage522/listingsync/pkg/errors"

	"gopkg.in/yaml.v3"
)

// DefaultMunicipalities is ordered so that longer names containing a shorter
// one ("North Vancouver", "Port Coquitlam") are tested first.
var DefaultMunicipalities = []string{
	"North Vancouver",
	"West Vancouver",
	"New Westminster",
	"Port Coquitlam",
	"Port Moody",
	"Coquitlam",
	"Burnaby",
	"Richmond",
	"Surrey",
	"Delta",
	"Langley",
	"Maple Ridge",
	"White Rock",
	"Vancouver",
}

// Config represents the application configuration
type Config struct {
	// Listing store
	ListingsFile  string
	RetentionDays int

	// Sync configuration
	FetchLimit      int
	MaxPages        int
	RequestDelay    time.Duration
	BlockTime       time.Duration
	DefaultLocation string
	Municipalities  []string

	// Image placeholders keyed by source name
	ImagePlaceholders map[string]string

	// Translation
	TargetLanguage   string
	TranslateURL     string
	TranslateTimeout time.Duration

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Postgres mirror, disabled when empty
	DatabaseURL string

	// URLs for the source adapters
	CraigslistURL string
	KijijiURL     string

	// Environment
	Environment string
}

// fileConfig mirrors the subset of Config that may be set from YAML
type fileConfig struct {
	ListingsFile      string            `yaml:"listings_file"`
	RetentionDays     *int              `yaml:"retention_days"`
	FetchLimit        *int              `yaml:"fetch_limit"`
	MaxPages          *int              `yaml:"max_pages"`
	RequestDelay      string            `yaml:"request_delay"`
	TargetLanguage    *string           `yaml:"target_language"`
	DefaultLocation   string            `yaml:"default_location"`
	Municipalities    []string          `yaml:"municipalities"`
	ImagePlaceholders map[string]string `yaml:"image_placeholders"`
	Sources           struct {
		Craigslist string `yaml:"craigslist"`
		Kijiji     string `yaml:"kijiji"`
	} `yaml:"sources"`
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// named by LISTINGSYNC_CONFIG, and environment variables, in that order.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("LISTINGSYNC_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, apperrors.NewConfiguration("load "+path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ListingsFile:         "listings.json",
		RetentionDays:        45,
		FetchLimit:           20,
		MaxPages:             3,
		RequestDelay:         3 * time.Second,
		BlockTime:            500 * time.Second,
		DefaultLocation:      "Vancouver",
		Municipalities:       append([]string(nil), DefaultMunicipalities...),
		ImagePlaceholders:    map[string]string{},
		TargetLanguage:       "zh-CN",
		TranslateURL:         "https://translate.googleapis.com/translate_a/single",
		TranslateTimeout:     10 * time.Second,
		RedisAddr:            "localhost:6379",
		RedisDB:              0,
		RedisStream:          "listings",
		RedisStreamCount:     1,
		RedisStreamMaxLength: 1000,
		MemcacheAddr:         "localhost:11211",
		CraigslistURL:        "https://vancouver.craigslist.org/search/apa",
		KijijiURL:            "https://www.kijiji.ca/b-apartments-condos/greater-vancouver-area/c37l80003",
		Environment:          "development",
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if fc.ListingsFile != "" {
		c.ListingsFile = fc.ListingsFile
	}
	if fc.RetentionDays != nil {
		c.RetentionDays = *fc.RetentionDays
	}
	if fc.FetchLimit != nil {
		c.FetchLimit = *fc.FetchLimit
	}
	if fc.MaxPages != nil {
		c.MaxPages = *fc.MaxPages
	}
	if fc.RequestDelay != "" {
		d, err := time.ParseDuration(fc.RequestDelay)
		if err != nil {
			return fmt.Errorf("invalid request_delay: %w", err)
		}
		c.RequestDelay = d
	}
	if fc.TargetLanguage != nil {
		c.TargetLanguage = *fc.TargetLanguage
	}
	if fc.DefaultLocation != "" {
		c.DefaultLocation = fc.DefaultLocation
	}
	if len(fc.Municipalities) > 0 {
		c.Municipalities = fc.Municipalities
	}
	for source, url := range fc.ImagePlaceholders {
		c.ImagePlaceholders[source] = url
	}
	if fc.Sources.Craigslist != "" {
		c.CraigslistURL = fc.Sources.Craigslist
	}
	if fc.Sources.Kijiji != "" {
		c.KijijiURL = fc.Sources.Kijiji
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ListingsFile = getEnv("LISTINGS_FILE", c.ListingsFile)
	c.RetentionDays = getEnvInt("RETENTION_DAYS", c.RetentionDays)
	c.FetchLimit = getEnvInt("FETCH_LIMIT", c.FetchLimit)
	c.MaxPages = getEnvInt("MAX_PAGES", c.MaxPages)
	c.RequestDelay = getEnvSeconds("REQUEST_DELAY_SECONDS", c.RequestDelay)
	c.BlockTime = getEnvSeconds("RATE_LIMIT_BLOCK_SECONDS", c.BlockTime)
	c.DefaultLocation = getEnv("DEFAULT_LOCATION", c.DefaultLocation)
	if v := os.Getenv("MUNICIPALITIES"); v != "" {
		c.Municipalities = splitList(v, ",")
	}
	if v := os.Getenv("IMAGE_PLACEHOLDERS"); v != "" {
		for _, pair := range splitList(v, ";") {
			source, url, ok := strings.Cut(pair, "=")
			if ok {
				c.ImagePlaceholders[strings.TrimSpace(source)] = strings.TrimSpace(url)
			}
		}
	}

	// An explicitly empty TARGET_LANGUAGE disables translation
	if v, ok := os.LookupEnv("TARGET_LANGUAGE"); ok {
		c.TargetLanguage = strings.TrimSpace(v)
	}
	c.TranslateURL = getEnv("TRANSLATE_URL", c.TranslateURL)
	c.TranslateTimeout = getEnvSeconds("TRANSLATE_TIMEOUT_SECONDS", c.TranslateTimeout)

	c.RedisAddr = getEnvAllowEmpty("REDIS_ADDR", c.RedisAddr)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisStream = getEnv("REDIS_STREAM", c.RedisStream)
	c.RedisStreamCount = getEnvInt("REDIS_STREAM_COUNT", c.RedisStreamCount)
	c.RedisStreamMaxLength = getEnvInt("REDIS_STREAM_MAX_LENGTH", c.RedisStreamMaxLength)
	c.MemcacheAddr = getEnvAllowEmpty("MEMCACHE_ADDR", c.MemcacheAddr)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.CraigslistURL = getEnv("CRAIGSLIST_URL", c.CraigslistURL)
	c.KijijiURL = getEnv("KIJIJI_URL", c.KijijiURL)
	c.Environment = getEnv("LISTINGSYNC_ENVIRONMENT", c.Environment)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ListingsFile == "" {
		return apperrors.NewConfiguration("listings file path is required", nil)
	}
	if c.RetentionDays < 0 {
		return apperrors.NewConfiguration(fmt.Sprintf("retention days must not be negative, got %d", c.RetentionDays), nil)
	}
	if c.FetchLimit < 0 {
		return apperrors.NewConfiguration(fmt.Sprintf("fetch limit must not be negative, got %d", c.FetchLimit), nil)
	}
	if c.MaxPages < 1 {
		return apperrors.NewConfiguration(fmt.Sprintf("max pages must be at least 1, got %d", c.MaxPages), nil)
	}
	if c.RequestDelay < 0 {
		return apperrors.NewConfiguration("request delay must not be negative", nil)
	}
	if strings.TrimSpace(c.DefaultLocation) == "" {
		return apperrors.NewConfiguration("default location is required", nil)
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return apperrors.NewConfiguration("redis stream count must be at least 1", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAllowEmpty lets a variable set to "" override the default
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}

func splitList(value, sep string) []string {
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
