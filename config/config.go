package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"auto_sniper/models"
)

type Config struct {
	Database  DatabaseConfig
	Geo       GeoConfig
	History   HistoryConfig
	AI        AIConfig
	Pipeline  PipelineConfig
	Scheduler SchedulerConfig
	API       APIConfig
	S3        S3Config
	Log       LogConfig
	Weights   models.FitnessWeights
	Sites     map[string]*SiteConfig
}

type DatabaseConfig struct {
	URL        string
	SQLitePath string
	RedisURL   string
}

type GeoConfig struct {
	CacheBackend string // file, sqlite or redis
	CachePath    string
	GeocoderURL  string
	Country      string
	Delay        time.Duration
}

type HistoryConfig struct {
	URL   string
	Delay time.Duration
}

type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type PipelineConfig struct {
	ListingsDir          string
	FilterBatchSize      int
	DescriptionBatchSize int
	DescriptionScoring   bool
	ScoreConcurrency     int
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type APIConfig struct {
	Port int
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

// SiteConfig describes how to read a marketplace's listing detail page.
type SiteConfig struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Platform    string        `yaml:"platform"`
	LinkMatch   string        `yaml:"link_match"`
	RateLimitMS int           `yaml:"rate_limit_ms"`
	Selectors   SiteSelectors `yaml:"selectors"`
}

// SiteSelectors are CSS selectors into the detail page. VIN, Plate and
// FirstRegistration are the labels of the parameter rows holding them.
type SiteSelectors struct {
	Description       string `yaml:"description"`
	Params            string `yaml:"params"`
	ParamLabel        string `yaml:"param_label"`
	ParamValue        string `yaml:"param_value"`
	VIN               string `yaml:"vin"`
	Plate             string `yaml:"plate"`
	FirstRegistration string `yaml:"first_registration"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL:        os.Getenv("DATABASE_URL"),
			SQLitePath: getEnv("SQLITE_PATH", "auto_sniper.db"),
			RedisURL:   os.Getenv("REDIS_URL"),
		},
		Geo: GeoConfig{
			CacheBackend: getEnv("COORDS_CACHE", "file"),
			CachePath:    getEnv("COORDS_CACHE_PATH", "cache/coords.json"),
			GeocoderURL:  getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
			Country:      getEnv("GEOCODER_COUNTRY", "Polska"),
			Delay:        time.Duration(getEnvInt("GEO_DELAY_MS", 250)) * time.Millisecond,
		},
		History: HistoryConfig{
			URL:   os.Getenv("HISTORY_URL"),
			Delay: time.Duration(getEnvInt("HISTORY_DELAY_MS", 1000)) * time.Millisecond,
		},
		AI: AIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout: getEnvDuration("OPENAI_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			ListingsDir:          getEnv("LISTINGS_DIR", "data/listings"),
			FilterBatchSize:      getEnvInt("FILTER_BATCH_SIZE", 5),
			DescriptionBatchSize: getEnvInt("DESCRIPTION_BATCH_SIZE", 4),
			DescriptionScoring:   getEnvBool("DESCRIPTION_SCORING", false),
			ScoreConcurrency:     getEnvInt("SCORE_CONCURRENCY", 8),
		},
		Scheduler: SchedulerConfig{
			Interval: getEnvDuration("QUEUE_POLL_INTERVAL", 5*time.Second),
			Cron:     os.Getenv("QUEUE_CRON"),
		},
		API: APIConfig{
			Port: getEnvInt("API_PORT", 8080),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "eu-central-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", "auto_sniper.log"),
		},
		Sites: make(map[string]*SiteConfig),
	}

	weights, err := LoadWeights(getEnv("WEIGHTS_FILE", "config/weights.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Weights = weights

	if err := cfg.loadSiteConfigs(getEnv("SITES_DIR", "config/sites")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWeights reads fitness weights from a YAML file. A missing file yields
// the default weights; keys absent from the file keep their default value.
func LoadWeights(path string) (models.FitnessWeights, error) {
	weights := models.DefaultWeights()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return weights, nil
		}
		return weights, err
	}
	if err := yaml.Unmarshal(data, &weights); err != nil {
		return weights, fmt.Errorf("parse %s: %w", path, err)
	}
	return weights, nil
}

func (c *Config) loadSiteConfigs(configDir string) error {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var site SiteConfig
		if err := yaml.Unmarshal(data, &site); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		c.Sites[site.ID] = &site
	}

	return nil
}

// SiteForLink returns the site whose link pattern appears in link.
func (c *Config) SiteForLink(link string) *SiteConfig {
	for _, site := range c.Sites {
		if site.LinkMatch != "" && strings.Contains(link, site.LinkMatch) {
			return site
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
