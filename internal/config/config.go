package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"go.uber.org/multierr"
)

const (
	DefaultSourceURL     = "https://checkvisaslots.com/latest-us-visa-availability.html"
	DefaultTableSelector = "#table_F1Regular tbody tr"
)

type Config struct {
	// Monitor
	PollInterval    time.Duration // time between cycle starts
	ChangeThreshold int           // minimum increase in total dates that alerts
	FetchTimeout    time.Duration // upper bound for one retrieval

	// Source page
	SourceURL          string
	TableSelector      string // CSS selector for the data rows
	LocationColumn     int
	TotalDatesColumn   int
	EarliestDateColumn int // -1 means the page has no such column
	RetryAttempts      int
	RetryBackoff       time.Duration

	// Process
	Addr        string // API bind address, e.g., "127.0.0.1:8080" (Windows) or ":8080" (Docker)
	LogDir      string
	DatabaseURL string // postgres alert log; wins over AlertDBPath
	AlertDBPath string // sqlite alert log; empty with no DatabaseURL means in-memory
	TableFile   string // comparison table written after each cycle when set

	// Notification channels; each is skipped when unset.
	SlackWebhookURL  string
	LineChannelToken string
	LineUserID       string
	TelegramBotToken string
	TelegramChatID   int64

	// API access
	PublicAPIKeys  []string
	AdminAPIKeys   []string
	PublicRPM      int
	PublicBurst    int
	AllowedOrigins []string // CORS; empty allows any origin
}

func Default() Config {
	return Config{
		PollInterval:       5 * time.Minute,
		ChangeThreshold:    2,
		FetchTimeout:       60 * time.Second,
		SourceURL:          DefaultSourceURL,
		TableSelector:      DefaultTableSelector,
		LocationColumn:     0,
		TotalDatesColumn:   3,
		EarliestDateColumn: -1,
		RetryAttempts:      2,
		RetryBackoff:       300 * time.Millisecond,
		Addr:               "127.0.0.1:8080",
		LogDir:             "logs",
		PublicRPM:          60,
		PublicBurst:        10,
	}
}

// FromEnv returns the defaults overridden by environment variables.
// Malformed values are ignored.
func FromEnv() Config {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

// fileConfig is the YAML shape. Pointers distinguish "unset" from zero.
type fileConfig struct {
	PollInterval       string   `yaml:"poll_interval"`
	ChangeThreshold    *int     `yaml:"change_threshold"`
	FetchTimeout       string   `yaml:"fetch_timeout"`
	SourceURL          string   `yaml:"source_url"`
	TableSelector      string   `yaml:"table_selector"`
	LocationColumn     *int     `yaml:"location_column"`
	TotalDatesColumn   *int     `yaml:"total_dates_column"`
	EarliestDateColumn *int     `yaml:"earliest_date_column"`
	RetryAttempts      *int     `yaml:"retry_attempts"`
	RetryBackoff       string   `yaml:"retry_backoff"`
	Addr               string   `yaml:"addr"`
	LogDir             string   `yaml:"log_dir"`
	DatabaseURL        string   `yaml:"database_url"`
	AlertDBPath        string   `yaml:"alert_db_path"`
	TableFile          string   `yaml:"table_file"`
	SlackWebhookURL    string   `yaml:"slack_webhook_url"`
	LineChannelToken   string   `yaml:"line_channel_token"`
	LineUserID         string   `yaml:"line_user_id"`
	TelegramBotToken   string   `yaml:"telegram_bot_token"`
	TelegramChatID     int64    `yaml:"telegram_chat_id"`
	PublicAPIKeys      []string `yaml:"public_api_keys"`
	AdminAPIKeys       []string `yaml:"admin_api_keys"`
	PublicRPM          int      `yaml:"public_rpm"`
	PublicBurst        int      `yaml:"public_burst"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
}

// Load reads a YAML file over the defaults, then applies the environment
// on top so a deploy can override single values without editing the file.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	cfg := Default()
	if err := fc.applyTo(&cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve loads CONFIG_FILE when set, otherwise the environment alone.
func Resolve() (Config, error) {
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		return Load(path)
	}
	cfg := FromEnv()
	return cfg, cfg.Validate()
}

func (fc fileConfig) applyTo(cfg *Config) error {
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"poll_interval", fc.PollInterval, &cfg.PollInterval},
		{"fetch_timeout", fc.FetchTimeout, &cfg.FetchTimeout},
		{"retry_backoff", fc.RetryBackoff, &cfg.RetryBackoff},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = v
	}

	setInt(&cfg.ChangeThreshold, fc.ChangeThreshold)
	setInt(&cfg.LocationColumn, fc.LocationColumn)
	setInt(&cfg.TotalDatesColumn, fc.TotalDatesColumn)
	setInt(&cfg.EarliestDateColumn, fc.EarliestDateColumn)
	setInt(&cfg.RetryAttempts, fc.RetryAttempts)

	setString(&cfg.SourceURL, fc.SourceURL)
	setString(&cfg.TableSelector, fc.TableSelector)
	setString(&cfg.Addr, fc.Addr)
	setString(&cfg.LogDir, fc.LogDir)
	setString(&cfg.DatabaseURL, fc.DatabaseURL)
	setString(&cfg.AlertDBPath, fc.AlertDBPath)
	setString(&cfg.TableFile, fc.TableFile)
	setString(&cfg.SlackWebhookURL, fc.SlackWebhookURL)
	setString(&cfg.LineChannelToken, fc.LineChannelToken)
	setString(&cfg.LineUserID, fc.LineUserID)
	setString(&cfg.TelegramBotToken, fc.TelegramBotToken)

	if fc.TelegramChatID != 0 {
		cfg.TelegramChatID = fc.TelegramChatID
	}
	if len(fc.PublicAPIKeys) > 0 {
		cfg.PublicAPIKeys = fc.PublicAPIKeys
	}
	if len(fc.AdminAPIKeys) > 0 {
		cfg.AdminAPIKeys = fc.AdminAPIKeys
	}
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.PublicRPM > 0 {
		cfg.PublicRPM = fc.PublicRPM
	}
	if fc.PublicBurst > 0 {
		cfg.PublicBurst = fc.PublicBurst
	}
	return nil
}

func applyEnv(cfg *Config) {
	envMillis("POLL_INTERVAL_MS", &cfg.PollInterval, 1)
	envMillis("FETCH_TIMEOUT_MS", &cfg.FetchTimeout, 1)
	envMillis("RETRY_BACKOFF_MS", &cfg.RetryBackoff, 0)

	envInt("CHANGE_THRESHOLD", &cfg.ChangeThreshold, 0)
	envInt("RETRY_ATTEMPTS", &cfg.RetryAttempts, 1)
	envInt("LOCATION_COLUMN", &cfg.LocationColumn, 0)
	envInt("TOTAL_DATES_COLUMN", &cfg.TotalDatesColumn, 0)
	envInt("EARLIEST_DATE_COLUMN", &cfg.EarliestDateColumn, -1)
	envInt("PUBLIC_RPM", &cfg.PublicRPM, 1)
	envInt("PUBLIC_BURST", &cfg.PublicBurst, 1)

	envString("SOURCE_URL", &cfg.SourceURL)
	envString("TABLE_SELECTOR", &cfg.TableSelector)
	envString("API_ADDR", &cfg.Addr)
	envString("LOG_DIR", &cfg.LogDir)
	envString("DATABASE_URL", &cfg.DatabaseURL)
	envString("ALERT_DB_PATH", &cfg.AlertDBPath)
	envString("TABLE_FILE", &cfg.TableFile)
	envString("SLACK_WEBHOOK_URL", &cfg.SlackWebhookURL)
	envString("LINE_CHANNEL_TOKEN", &cfg.LineChannelToken)
	envString("LINE_USER_ID", &cfg.LineUserID)
	envString("TELEGRAM_BOT_TOKEN", &cfg.TelegramBotToken)

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}
	if keys := splitList(os.Getenv("PUBLIC_API_KEYS")); len(keys) > 0 {
		cfg.PublicAPIKeys = keys
	}
	if keys := splitList(os.Getenv("ADMIN_API_KEYS")); len(keys) > 0 {
		cfg.AdminAPIKeys = keys
	}
	if origins := splitList(os.Getenv("ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
}

// Validate rejects settings the monitor cannot run with.
func (c Config) Validate() error {
	var err error
	if c.PollInterval <= 0 {
		err = multierr.Append(err, errors.New("config: poll interval must be > 0"))
	}
	if c.FetchTimeout <= 0 {
		err = multierr.Append(err, errors.New("config: fetch timeout must be > 0"))
	}
	if c.ChangeThreshold < 0 {
		err = multierr.Append(err, errors.New("config: change threshold must be >= 0"))
	}
	if !strings.HasPrefix(c.SourceURL, "http://") && !strings.HasPrefix(c.SourceURL, "https://") {
		err = multierr.Append(err, fmt.Errorf("config: source url %q must start with http:// or https://", c.SourceURL))
	}
	if strings.TrimSpace(c.TableSelector) == "" {
		err = multierr.Append(err, errors.New("config: table selector is empty"))
	}
	if c.LocationColumn < 0 || c.TotalDatesColumn < 0 || c.EarliestDateColumn < -1 {
		err = multierr.Append(err, errors.New("config: column indexes must be >= 0"))
	}
	if c.RetryAttempts < 1 {
		err = multierr.Append(err, errors.New("config: retry attempts must be >= 1"))
	}
	return err
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int, min int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= min {
			*dst = n
		}
	}
}

func envMillis(key string, dst *time.Duration, min int) {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && ms >= min {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
