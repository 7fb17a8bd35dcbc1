package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gosidekick/goconfig"
	"github.com/izzddalfk/telepay/internal/paybot/core"
	"github.com/izzddalfk/telepay/internal/paybot/infra/telegram"
	"gopkg.in/yaml.v3"
)

const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

type Configs struct {
	ApplicationConfig ApplicationConfig
	InvoiceConfig     InvoiceConfig
	ServerConfig      ServerConfig

	// Settings is loaded from ApplicationConfig.SettingsPath when set.
	Settings *Settings
}

type ApplicationConfig struct {
	LogLevel         string `cfg:"log_level" cfgDefault:"debug"`
	Mode             string `cfg:"mode" cfgDefault:"webhook"`
	TelegramBaseURL  string `cfg:"telegram_base_url" cfgDefault:"https://api.telegram.org"`
	TelegramBotToken string `cfg:"telegram_bot_token" cfgRequired:"true"`
	LogErrors        bool   `cfg:"log_errors" cfgDefault:"true"`
	ErrorLogDir      string `cfg:"error_log_dir" cfgDefault:"logs"`
	ErrorLogName     string `cfg:"error_log_name" cfgDefault:"TelegramErrorLogger"`
	ProxyURL         string `cfg:"proxy_url"`
	ProxyPort        int    `cfg:"proxy_port"`
	ProxyType        string `cfg:"proxy_type"`
	ProxyAuth        string `cfg:"proxy_auth"`
	SettingsPath     string `cfg:"settings_path"`
	PollTimeout      int    `cfg:"poll_timeout" cfgDefault:"30"`
}

// InvoiceConfig holds the invoice sent for the pay command
type InvoiceConfig struct {
	Title         string `cfg:"invoice_title" cfgDefault:"Payment"`
	Description   string `cfg:"invoice_description" cfgDefault:"Test item #1"`
	Payload       string `cfg:"invoice_payload" cfgDefault:"test"`
	ProviderToken string `cfg:"invoice_provider_token"`
	Currency      string `cfg:"invoice_currency" cfgDefault:"RUB"`
	ProviderData  string `cfg:"invoice_provider_data"`
	PriceLabel    string `cfg:"invoice_price_label" cfgDefault:"RUB"`
	PriceAmount   int64  `cfg:"invoice_price_amount" cfgDefault:"10000"`
	// RatePerMinute limits pay commands per chat, 0 disables the limit.
	RatePerMinute int `cfg:"invoice_rate_per_minute" cfgDefault:"0"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port          int    `cfg:"port" cfgDefault:"8443"`
	ReadTimeout   int    `cfg:"read_timeout" cfgDefault:"10"`
	WriteTimeout  int    `cfg:"write_timeout" cfgDefault:"10"`
	WebhookSecret string `cfg:"webhook_secret"`
}

// Settings is the optional YAML settings file
type Settings struct {
	Proxy  *telegram.ProxyConfig `yaml:"proxy"`
	Prices []core.LabeledPrice   `yaml:"prices"`
}

// LoadConfig loads configuration from environment variables
// and do validations to them
func LoadConfig() (*Configs, error) {
	var (
		appCfg     ApplicationConfig
		invoiceCfg InvoiceConfig
		serverCfg  ServerConfig
	)
	err := goconfig.Parse(&appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse application config: %w", err)
	}
	err = goconfig.Parse(&invoiceCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice config: %w", err)
	}
	err = goconfig.Parse(&serverCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	cfg := &Configs{
		ApplicationConfig: appCfg,
		InvoiceConfig:     invoiceCfg,
		ServerConfig:      serverCfg,
	}

	if appCfg.SettingsPath != "" {
		cfg.Settings, err = LoadSettings(appCfg.SettingsPath)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSettings reads the YAML settings file at path
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return &settings, nil
}

// Validate checks values goconfig cannot express with tags
func (c *Configs) Validate() error {
	var errs []error
	switch c.ApplicationConfig.Mode {
	case ModeWebhook, ModePolling:
	default:
		errs = append(errs, core.NewValidationError("mode", fmt.Sprintf("unknown mode %q", c.ApplicationConfig.Mode)))
	}
	if c.ApplicationConfig.PollTimeout < 0 {
		errs = append(errs, core.NewValidationError("poll_timeout", "must not be negative"))
	}
	if c.InvoiceConfig.RatePerMinute < 0 {
		errs = append(errs, core.NewValidationError("invoice_rate_per_minute", "must not be negative"))
	}
	if c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535 {
		errs = append(errs, core.NewValidationError("port", "must be between 1 and 65535"))
	}
	return errors.Join(errs...)
}

// Proxy returns the proxy to use, or nil when none is configured. A proxy in
// the settings file takes precedence over the environment.
func (c *Configs) Proxy() *telegram.ProxyConfig {
	if c.Settings != nil && c.Settings.Proxy != nil {
		return c.Settings.Proxy
	}
	app := c.ApplicationConfig
	if app.ProxyURL == "" {
		return nil
	}
	return &telegram.ProxyConfig{
		URL:  app.ProxyURL,
		Port: app.ProxyPort,
		Type: app.ProxyType,
		Auth: app.ProxyAuth,
	}
}

// Invoice returns the invoice template. Prices from the settings file replace
// the single price given in the environment.
func (c *Configs) Invoice() core.Invoice {
	inv := c.InvoiceConfig
	prices := []core.LabeledPrice{{Label: inv.PriceLabel, Amount: inv.PriceAmount}}
	if c.Settings != nil && len(c.Settings.Prices) > 0 {
		prices = c.Settings.Prices
	}
	return core.Invoice{
		Title:         inv.Title,
		Description:   inv.Description,
		Payload:       inv.Payload,
		ProviderToken: inv.ProviderToken,
		Currency:      inv.Currency,
		ProviderData:  inv.ProviderData,
		Prices:        prices,
	}
}

func (c ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

func (c ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}
