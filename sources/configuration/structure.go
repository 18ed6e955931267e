package configuration

import (
	"time"
)

type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Dispatcher   DispatcherConfig   `yaml:"dispatcher"`
	Proxy        ProxyConfig        `yaml:"proxy"`
	Network      NetworkConfig      `yaml:"network"`
	Features     FeaturesConfig     `yaml:"features"`
	Localization LocalizationConfig `yaml:"localization"`
}

type ServiceConfig struct {
	StartupPort            int `yaml:"startup_port"`
	SystemMetricsPort      int `yaml:"system_metrics_port"`
	ApplicationMetricsPort int `yaml:"application_metrics_port"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"time_zone"`
}

type RedisConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type TelegramConfig struct {
	Tokens            []string `yaml:"tokens"`
	APIEndpoint       string   `yaml:"api_endpoint"`
	PollerTimeout     int      `yaml:"poller_timeout"`
	AllowedUpdates    []string `yaml:"allowed_updates"`
	DiplomatChunkSize int      `yaml:"diplomat_chunk_size"`
	GlobalRPS         float64  `yaml:"global_rps"`
	GlobalBurst       int      `yaml:"global_burst"`
	ChatRPS           float64  `yaml:"chat_rps"`
	ChatBurst         int      `yaml:"chat_burst"`
	MaxInFlight       int      `yaml:"max_in_flight"`
	NotifyOnStartup   bool     `yaml:"notify_on_startup"`
}

// DispatcherConfig selects where the dispatcher keeps its process-wide tables.
// Backend is "memory" or "redis".
type DispatcherConfig struct {
	SettingsPath  string        `yaml:"settings_path"`
	VipPath       string        `yaml:"vip_path"`
	Backend       string        `yaml:"backend"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type ProxyConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type NetworkConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type FeaturesConfig struct {
	UnleashAPIURL     string `yaml:"unleash_api_url"`
	UnleashAppName    string `yaml:"unleash_app_name"`
	UnleashInstanceID string `yaml:"unleash_instance_id"`
	RefreshInterval   int    `yaml:"refresh_interval"`
}

type LocalizationConfig struct {
	DefaultLanguage    string   `yaml:"default_language"`
	SupportedLanguages []string `yaml:"supported_languages"`
}
