// ABOUTME: Runtime configuration loaded from .env, an optional YAML file and the environment
// ABOUTME: Uses viper with PULSE_ prefixed keys plus the plain credential variable names
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PULSE"

type Config struct {
	Zoho     ZohoConfig     `mapstructure:"zoho"`
	Database DatabaseConfig `mapstructure:"database"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Report   ReportConfig   `mapstructure:"report"`
	Labels   LabelsConfig   `mapstructure:"labels"`
	Anomaly  AnomalyConfig  `mapstructure:"anomaly"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Lock     LockConfig     `mapstructure:"lock"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Log      LogConfig      `mapstructure:"log"`
}

type ZohoConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	AccountsURL  string `mapstructure:"accounts_url"`
	APIURL       string `mapstructure:"api_url"`
	PerPage      int    `mapstructure:"per_page"`
	MaxRetries   int    `mapstructure:"max_retries"`
}

// DatabaseConfig selects the store. An empty URL means SQLite at Path.
type DatabaseConfig struct {
	URL  string `mapstructure:"url"`
	Path string `mapstructure:"path"`
	// HostOverrides entries have the form host=address.
	HostOverrides []string `mapstructure:"host_overrides"`
	DoHURL        string   `mapstructure:"doh_url"`
	DoHHosts      []string `mapstructure:"doh_hosts"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	ToNumber   string `mapstructure:"to_number"`
	BaseURL    string `mapstructure:"base_url"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Temperature float64 `mapstructure:"temperature"`
}

type ReportConfig struct {
	Timezone      string `mapstructure:"timezone"`
	Currency      string `mapstructure:"currency"`
	ChannelBudget int    `mapstructure:"channel_budget"`
}

// LabelsConfig holds the CRM vocabulary used to classify records.
type LabelsConfig struct {
	JunkStatuses []string `mapstructure:"junk_statuses"`
	WonStage     string   `mapstructure:"won_stage"`
	LostStage    string   `mapstructure:"lost_stage"`
}

type AnomalyConfig struct {
	OverloadLeads    int     `mapstructure:"overload_leads"`
	OverloadPipeline float64 `mapstructure:"overload_pipeline"`
	ToxicJunkPct     float64 `mapstructure:"toxic_junk_pct"`
	ToxicMinTotal    int     `mapstructure:"toxic_min_total"`
}

type SyncConfig struct {
	ContinueOnFetchError bool `mapstructure:"continue_on_fetch_error"`
}

type LockConfig struct {
	Name string        `mapstructure:"name"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type TimeoutsConfig struct {
	Fetch time.Duration `mapstructure:"fetch"`
	DB    time.Duration `mapstructure:"db"`
	LLM   time.Duration `mapstructure:"llm"`
	Send  time.Duration `mapstructure:"send"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// legacyEnv maps config keys to the unprefixed variable names used by
// existing deployments.
var legacyEnv = map[string]string{
	"zoho.client_id":     "ZOHO_CLIENT_ID",
	"zoho.client_secret": "ZOHO_CLIENT_SECRET",
	"zoho.refresh_token": "ZOHO_REFRESH_TOKEN",
	"zoho.accounts_url":  "ZOHO_ACCOUNTS_URL",
	"zoho.api_url":       "ZOHO_API_URL",
	"database.url":       "DATABASE_URL",
	"twilio.account_sid": "TWILIO_ACCOUNT_SID",
	"twilio.auth_token":  "TWILIO_AUTH_TOKEN",
	"twilio.from_number": "TWILIO_WHATSAPP_NUMBER",
	"twilio.to_number":   "TARGET_WHATSAPP_NUMBER",
	"llm.api_key":        "OPENAI_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("zoho.client_id", "")
	v.SetDefault("zoho.client_secret", "")
	v.SetDefault("zoho.refresh_token", "")
	v.SetDefault("zoho.accounts_url", "https://accounts.zoho.in")
	v.SetDefault("zoho.api_url", "https://www.zohoapis.in")
	v.SetDefault("zoho.per_page", 200)
	v.SetDefault("zoho.max_retries", 3)

	v.SetDefault("database.url", "")
	v.SetDefault("database.path", "")
	v.SetDefault("database.host_overrides", []string{})
	v.SetDefault("database.doh_url", "")
	v.SetDefault("database.doh_hosts", []string{})

	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.from_number", "")
	v.SetDefault("twilio.to_number", "")
	v.SetDefault("twilio.base_url", "https://api.twilio.com")

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.model", "llama3.2")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.0)

	v.SetDefault("report.timezone", "Asia/Kolkata")
	v.SetDefault("report.currency", "₹")
	v.SetDefault("report.channel_budget", 1500)

	v.SetDefault("labels.junk_statuses", []string{"Junk Lead", "Not Qualified", "Lost Lead"})
	v.SetDefault("labels.won_stage", "Closed Won")
	v.SetDefault("labels.lost_stage", "Closed Lost")

	v.SetDefault("anomaly.overload_leads", 100)
	v.SetDefault("anomaly.overload_pipeline", 5000000.0)
	v.SetDefault("anomaly.toxic_junk_pct", 30.0)
	v.SetDefault("anomaly.toxic_min_total", 5)

	v.SetDefault("sync.continue_on_fetch_error", false)

	v.SetDefault("lock.name", "pulse-daily")
	v.SetDefault("lock.ttl", 30*time.Minute)

	v.SetDefault("timeouts.fetch", 60*time.Second)
	v.SetDefault("timeouts.db", 30*time.Second)
	v.SetDefault("timeouts.llm", 5*time.Minute)
	v.SetDefault("timeouts.send", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. A missing .env is fine; an explicit configPath
// that cannot be read is an error.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// Location returns the report time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", c.Report.Timezone, err)
	}
	return loc, nil
}

// Overrides parses HostOverrides into a host to address map.
func (d DatabaseConfig) Overrides() (map[string]string, error) {
	overrides := make(map[string]string, len(d.HostOverrides))
	for _, entry := range d.HostOverrides {
		host, addr, ok := strings.Cut(entry, "=")
		host, addr = strings.TrimSpace(host), strings.TrimSpace(addr)
		if !ok || host == "" || addr == "" {
			return nil, fmt.Errorf("invalid host override %q, want host=address", entry)
		}
		overrides[host] = addr
	}
	return overrides, nil
}

// ValidateSync checks what the sync stage needs.
func (c *Config) ValidateSync() error {
	return requireKeys(map[string]string{
		"ZOHO_CLIENT_ID":     c.Zoho.ClientID,
		"ZOHO_CLIENT_SECRET": c.Zoho.ClientSecret,
		"ZOHO_REFRESH_TOKEN": c.Zoho.RefreshToken,
	})
}

// Validate checks everything a full pipeline run needs.
func (c *Config) Validate() error {
	if err := requireKeys(map[string]string{
		"ZOHO_CLIENT_ID":         c.Zoho.ClientID,
		"ZOHO_CLIENT_SECRET":     c.Zoho.ClientSecret,
		"ZOHO_REFRESH_TOKEN":     c.Zoho.RefreshToken,
		"TWILIO_ACCOUNT_SID":     c.Twilio.AccountSID,
		"TWILIO_AUTH_TOKEN":      c.Twilio.AuthToken,
		"TWILIO_WHATSAPP_NUMBER": c.Twilio.FromNumber,
		"TARGET_WHATSAPP_NUMBER": c.Twilio.ToNumber,
	}); err != nil {
		return err
	}

	switch c.LLM.Provider {
	case "ollama":
	case "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm provider openai requires an api key")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Report.ChannelBudget <= 0 {
		return fmt.Errorf("report.channel_budget must be positive")
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive")
	}
	return nil
}

func requireKeys(values map[string]string) error {
	var missing []string
	for name, value := range values {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}

// ConfigFileFromEnv returns PULSE_CONFIG when set and present on disk.
func ConfigFileFromEnv() string {
	path := os.Getenv(envPrefix + "_CONFIG")
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
