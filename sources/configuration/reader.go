package configuration

import (
	"chaldea/sources/platform"
	"chaldea/sources/tracing"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var envPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(?::([^}]*))?\}`)

// NewYaml reads the configuration from CONFIG_PATH (default: config.yaml) after
// loading an optional .env file. ${VAR} and ${VAR:default} are expanded.
func NewYaml(log *tracing.Logger) (*Config, error) {
	defer tracing.ProfilePoint(log, "Configuration loaded", "configuration.load")()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.W("failed to load .env file", tracing.InnerError, err)
	}

	filePath := platform.Get("CONFIG_PATH", "config.yaml")

	log.I("reading configuration", "path", filePath)

	content, err := os.ReadFile(filePath)
	if err != nil {
		log.E("failed to read configuration file", tracing.InnerError, err, "path", filePath)
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	config, err := Parse(content)
	if err != nil {
		log.E("failed to parse configuration file", tracing.InnerError, err, "path", filePath)
		return nil, err
	}

	return config, nil
}

// Parse expands the environment references in content, decodes it and fills defaults.
func Parse(content []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(expandEnv(string(content))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Service.StartupPort == 0 {
		c.Service.StartupPort = 3000
	}
	if c.Telegram.PollerTimeout == 0 {
		c.Telegram.PollerTimeout = 60
	}
	if len(c.Telegram.AllowedUpdates) == 0 {
		c.Telegram.AllowedUpdates = []string{"message", "callback_query"}
	}
	if c.Telegram.DiplomatChunkSize == 0 {
		c.Telegram.DiplomatChunkSize = 4096
	}
	if c.Telegram.GlobalRPS == 0 {
		c.Telegram.GlobalRPS = 30
	}
	if c.Telegram.GlobalBurst == 0 {
		c.Telegram.GlobalBurst = 10
	}
	if c.Telegram.ChatRPS == 0 {
		c.Telegram.ChatRPS = 1
	}
	if c.Telegram.ChatBurst == 0 {
		c.Telegram.ChatBurst = 3
	}
	if c.Telegram.MaxInFlight <= 0 {
		c.Telegram.MaxInFlight = 64
	}
	if c.Dispatcher.SettingsPath == "" {
		c.Dispatcher.SettingsPath = "setup/settings.json"
	}
	if c.Dispatcher.VipPath == "" {
		c.Dispatcher.VipPath = "setup/vip.json"
	}
	if c.Dispatcher.Backend == "" {
		c.Dispatcher.Backend = "memory"
	}
	if c.Dispatcher.SessionTTL == 0 {
		c.Dispatcher.SessionTTL = 6 * time.Hour
	}
	if c.Dispatcher.SweepInterval == 0 {
		c.Dispatcher.SweepInterval = time.Minute
	}
	if c.Localization.DefaultLanguage == "" {
		c.Localization.DefaultLanguage = "en"
	}
	if len(c.Localization.SupportedLanguages) == 0 {
		c.Localization.SupportedLanguages = []string{"en"}
	}
}

// expandEnv replaces ${VAR} or ${VAR:default} with environment values.
func expandEnv(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(match string) string {
		matches := envPattern.FindStringSubmatch(match)
		key := matches[1]
		defaultValue := ""
		if len(matches) > 2 {
			defaultValue = matches[2]
		}

		value, exists := os.LookupEnv(key)
		if !exists {
			return defaultValue
		}
		return value
	})
}
