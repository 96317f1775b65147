package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Env             string `yaml:"env"`
		ShutdownTimeout int    `yaml:"shutdown_timeout"` // секунды
	} `yaml:"server"`

	Database struct {
		DSN             string `yaml:"url"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // минуты
		AutoMigrate     bool   `yaml:"auto_migrate"`
	} `yaml:"database"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"` // пусто = только stdout
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`

	JWT struct {
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
		TTL    int    `yaml:"ttl"` // минуты, только для выпуска служебных токенов
	} `yaml:"jwt"`

	Storage struct {
		Type       string `yaml:"type"`           // local, s3, cloudflare_r2
		BasePath   string `yaml:"base_path"`      // For local storage
		BaseURL    string `yaml:"base_url"`       // Public URL base
		Bucket     string `yaml:"bucket"`         // For S3/R2
		Region     string `yaml:"region"`         // For S3
		AccessKey  string `yaml:"access_key"`     // For S3/R2
		SecretKey  string `yaml:"secret_key"`     // For S3/R2
		Endpoint   string `yaml:"endpoint"`       // For R2 or custom S3
		PublicRead bool   `yaml:"public_read"`    // Make files public
		SignedTTL  int    `yaml:"signed_url_ttl"` // минуты, для приватных бакетов
	} `yaml:"storage"`

	Redis struct {
		Enabled   bool   `yaml:"enabled"`
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		LimitsTTL int    `yaml:"limits_ttl"` // секунды
	} `yaml:"redis"`

	RabbitMQ struct {
		Enabled    bool   `yaml:"enabled"`
		URL        string `yaml:"url"`
		Exchange   string `yaml:"exchange"`
		RoutingKey string `yaml:"routing_key"`
		Retries    int    `yaml:"retries"`
	} `yaml:"rabbitmq"`

	RateLimit struct {
		EventsRPS   float64 `yaml:"events_rps"`
		EventsBurst int     `yaml:"events_burst"`
	} `yaml:"rate_limit"`

	Workers struct {
		AddOnSweepEnabled  bool `yaml:"addon_sweep_enabled"`
		AddOnSweepInterval int  `yaml:"addon_sweep_interval"` // минуты
		DailySnapshots     bool `yaml:"daily_snapshots"`
	} `yaml:"workers"`
}

var AppConfig *Config

// LoadConfig заполняет глобальный AppConfig.
// Если задан DATABASE_URL, конфиг собирается из переменных окружения (режим теста / контейнера).
func LoadConfig() {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Load читает конфиг без глобального состояния (используется CLI и тестами)
func Load(configPath string) (*Config, error) {
	// .env опционален
	_ = godotenv.Load()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		log.Println("✅ Загрузка конфигурации из ПЕРЕМЕННЫХ ОКРУЖЕНИЯ")
		return fromEnv(dbURL), nil
	}

	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка из %s", configPath)

	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file at %s: %w", configPath, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file at %s: %w", configPath, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func fromEnv(dbURL string) *Config {
	var cfg Config

	cfg.Database.DSN = dbURL
	cfg.Database.AutoMigrate = envBool("DATABASE_AUTO_MIGRATE", true)
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.Issuer = os.Getenv("JWT_ISSUER")

	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = envString("STORAGE_PATH", "./uploads")
	cfg.Storage.BaseURL = "/uploads"

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = addr
	}
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		cfg.RabbitMQ.Enabled = true
		cfg.RabbitMQ.URL = url
	}
	cfg.Log.File = os.Getenv("LOG_FILE")

	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 7
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 60
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.SignedTTL == 0 {
		c.Storage.SignedTTL = 15
	}
	if c.Redis.LimitsTTL == 0 {
		c.Redis.LimitsTTL = 300
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "analytics"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "events.tracked"
	}
	if c.RabbitMQ.Retries == 0 {
		c.RabbitMQ.Retries = 5
	}
	if c.RateLimit.EventsRPS == 0 {
		c.RateLimit.EventsRPS = 20
	}
	if c.RateLimit.EventsBurst == 0 {
		c.RateLimit.EventsBurst = 40
	}
	if c.Workers.AddOnSweepInterval == 0 {
		c.Workers.AddOnSweepInterval = 360
	}
}

// LimitsCacheTTL - верхняя граница TTL кэша лимитов
func (c *Config) LimitsCacheTTL() time.Duration {
	return time.Duration(c.Redis.LimitsTTL) * time.Second
}

// SignedURLTTL - срок жизни подписанных ссылок на файлы.
// Ноль, если бакет публичный или хранилище локальное.
func (c *Config) SignedURLTTL() time.Duration {
	if c.Storage.PublicRead || c.Storage.Type == "local" {
		return 0
	}
	return time.Duration(c.Storage.SignedTTL) * time.Minute
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
