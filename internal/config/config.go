package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for jobsweep. It is built once by Load and
// treated as read-only afterwards.
type Config struct {
	Keywords         []string
	RecencyDays      int
	LimitPerScope    int
	ParallelSources  int
	ConnectorTimeout time.Duration
	Schedule         ScheduleConfig
	Cache            CacheConfig
	Catalog          *Catalog
	Sources          SourcesConfig
	Mailbox          MailboxConfig
	Notification     NotificationConfig
	RateLimit        RateLimitConfig
	Retry            RetryConfig
}

// ScheduleConfig controls when the daemon triggers a run.
type ScheduleConfig struct {
	Frequency string        // every_30_minutes, hourly, interval, daily, weekly
	Interval  time.Duration // used when Frequency is "interval"
	At        string        // HH:MM for daily and weekly
	Weekday   string        // weekly only, e.g. "monday"
}

// CacheConfig selects and locates the identity cache backend.
type CacheConfig struct {
	Backend string        // "json" or "sqlite"
	Path    string        // file for json, database for sqlite
	Lock    bool          // take a cross-process lock for the run
	MaxAge  time.Duration // optional; zero keeps entries forever
}

// SourcesConfig holds connector settings.
type SourcesConfig struct {
	Indeed IndeedConfig  `yaml:"indeed"`
	Boards []BoardConfig `yaml:"boards"`
}

// IndeedConfig enables the Indeed API connector when APIKey is set.
type IndeedConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// BoardConfig declares an HTML job board scraped with CSS selectors. It can
// override a built-in board or add a new one.
type BoardConfig struct {
	Domain      string   `yaml:"domain"`
	Name        string   `yaml:"name"`
	SearchURL   string   `yaml:"search_url"` // {keyword} and {location} placeholders
	BaseURL     string   `yaml:"base_url"`
	Item        string   `yaml:"item"`
	Title       string   `yaml:"title"`
	Link        string   `yaml:"link"`
	Company     string   `yaml:"company"`
	Location    string   `yaml:"location"`
	Date        string   `yaml:"date"`
	DateAttr    string   `yaml:"date_attr"`
	DateTrim    []string `yaml:"date_trim"`
	Description string   `yaml:"description"`
}

// MailboxConfig controls the IMAP job-alert connector.
type MailboxConfig struct {
	Enabled        bool
	Addr           string // host:port, TLS
	Username       string
	Password       string // fallback when the keyring has no entry
	KeyringAccount string
	Folder         string
	SinceDays      int
	MaxMessages    int
	CacheTTL       time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string      `yaml:"type"`        // "log", "slack" or "email"
	WebhookURL string      `yaml:"webhook_url"` // required if type is "slack"
	Email      EmailConfig `yaml:"email"`
}

// EmailConfig configures the SMTP digest notifier.
type EmailConfig struct {
	SMTPHost       string   `yaml:"smtp_host"`
	SMTPPort       int      `yaml:"smtp_port"`
	From           string   `yaml:"from"`
	To             []string `yaml:"to"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	KeyringAccount string   `yaml:"keyring_account"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
}

// RateLimitConfig controls per-source request pacing.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	SourceOverrides   map[string]float64 // requests per second, keyed by source id
}

// RateFor returns the configured rate for the given source, falling back to
// RequestsPerSecond.
func (r RateLimitConfig) RateFor(source string) float64 {
	if rps, ok := r.SourceOverrides[source]; ok {
		return rps
	}
	return r.RequestsPerSecond
}

// RetryConfig controls connector retries.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

const (
	defaultRecencyDays     = 30
	defaultLimitPerScope   = 10
	defaultParallelSources = 4
	defaultIndeedURL       = "https://api.indeed.com/v2/jobs"
	defaultSMTPPort        = 587
	defaultSubjectPrefix   = "Job Alert"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Keywords         []string           `yaml:"keywords"`
	RecencyDays      int                `yaml:"recency_days"`
	LimitPerScope    int                `yaml:"limit_per_scope"`
	ParallelSources  int                `yaml:"parallel_sources"`
	ConnectorTimeout string             `yaml:"connector_timeout"`
	Schedule         rawScheduleConfig  `yaml:"schedule"`
	Cache            rawCacheConfig     `yaml:"cache"`
	Catalog          rawCatalog         `yaml:"catalog"`
	Sources          SourcesConfig      `yaml:"sources"`
	Mailbox          rawMailboxConfig   `yaml:"mailbox"`
	Notification     NotificationConfig `yaml:"notification"`
	RateLimit        rawRateLimitConfig `yaml:"rate_limit"`
	Retry            rawRetryConfig     `yaml:"retry"`
}

type rawScheduleConfig struct {
	Frequency string `yaml:"frequency"`
	Interval  string `yaml:"interval"`
	At        string `yaml:"at"`
	Weekday   string `yaml:"weekday"`
}

type rawCacheConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Lock    *bool  `yaml:"lock"`
	MaxAge  string `yaml:"max_age"`
}

type rawScope struct {
	Code    string   `yaml:"code"`
	Name    string   `yaml:"name"`
	Region  string   `yaml:"region"`
	Groups  []string `yaml:"groups"`
	Sources []string `yaml:"sources"`
}

type rawCatalog struct {
	Groups map[string][]string `yaml:"groups"`
	Global rawScope            `yaml:"global"`
	Scopes []rawScope          `yaml:"scopes"`
}

type rawMailboxConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	KeyringAccount string `yaml:"keyring_account"`
	Folder         string `yaml:"folder"`
	SinceDays      int    `yaml:"since_days"`
	MaxMessages    int    `yaml:"max_messages"`
	CacheTTL       string `yaml:"cache_ttl"`
}

type rawRateLimitConfig struct {
	RequestsPerSecond float64            `yaml:"requests_per_second"`
	Burst             int                `yaml:"burst"`
	SourceOverrides   map[string]float64 `yaml:"source_overrides"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes. Environment variables are expanded first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	connectorTimeout, err := parseDuration("connector_timeout", raw.ConnectorTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	interval, err := parseDuration("schedule.interval", raw.Schedule.Interval, 0)
	if err != nil {
		return nil, err
	}
	cacheMaxAge, err := parseDuration("cache.max_age", raw.Cache.MaxAge, 0)
	if err != nil {
		return nil, err
	}
	mailboxTTL, err := parseDuration("mailbox.cache_ttl", raw.Mailbox.CacheTTL, 10*time.Minute)
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("retry.base_delay", raw.Retry.BaseDelay, 5*time.Second)
	if err != nil {
		return nil, err
	}

	catalog, err := buildCatalog(raw.Catalog)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Keywords:         raw.Keywords,
		RecencyDays:      orDefault(raw.RecencyDays, defaultRecencyDays),
		LimitPerScope:    orDefault(raw.LimitPerScope, defaultLimitPerScope),
		ParallelSources:  orDefault(raw.ParallelSources, defaultParallelSources),
		ConnectorTimeout: connectorTimeout,
		Schedule: ScheduleConfig{
			Frequency: strings.ToLower(orDefaultString(raw.Schedule.Frequency, "daily")),
			Interval:  interval,
			At:        orDefaultString(raw.Schedule.At, "08:00"),
			Weekday:   strings.ToLower(orDefaultString(raw.Schedule.Weekday, "monday")),
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(orDefaultString(raw.Cache.Backend, "json")),
			Path:    raw.Cache.Path,
			Lock:    raw.Cache.Lock == nil || *raw.Cache.Lock,
			MaxAge:  cacheMaxAge,
		},
		Catalog: catalog,
		Sources: raw.Sources,
		Mailbox: MailboxConfig{
			Enabled:        raw.Mailbox.Enabled,
			Addr:           raw.Mailbox.Addr,
			Username:       raw.Mailbox.Username,
			Password:       raw.Mailbox.Password,
			KeyringAccount: raw.Mailbox.KeyringAccount,
			Folder:         orDefaultString(raw.Mailbox.Folder, "INBOX"),
			SinceDays:      orDefault(raw.Mailbox.SinceDays, 7),
			MaxMessages:    orDefault(raw.Mailbox.MaxMessages, 50),
			CacheTTL:       mailboxTTL,
		},
		Notification: raw.Notification,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: raw.RateLimit.RequestsPerSecond,
			Burst:             orDefault(raw.RateLimit.Burst, 1),
			SourceOverrides:   raw.RateLimit.SourceOverrides,
		},
		Retry: RetryConfig{
			MaxRetries: 2,
			BaseDelay:  retryDelay,
		},
	}
	if raw.Retry.MaxRetries != nil {
		cfg.Retry.MaxRetries = *raw.Retry.MaxRetries
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 1
	}
	if cfg.Sources.Indeed.URL == "" {
		cfg.Sources.Indeed.URL = defaultIndeedURL
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	if cfg.Notification.Email.SMTPPort == 0 {
		cfg.Notification.Email.SMTPPort = defaultSMTPPort
	}
	if cfg.Notification.Email.SubjectPrefix == "" {
		cfg.Notification.Email.SubjectPrefix = defaultSubjectPrefix
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "job_cache.json"
		if cfg.Cache.Backend == "sqlite" {
			cfg.Cache.Path = "job_cache.db"
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func buildCatalog(raw rawCatalog) (*Catalog, error) {
	globalSources, err := expandSources(raw.Groups, raw.Global.Groups, raw.Global.Sources)
	if err != nil {
		return nil, fmt.Errorf("catalog.global: %w", err)
	}
	global := Scope{
		Code:    raw.Global.Code,
		Name:    raw.Global.Name,
		Region:  raw.Global.Region,
		Sources: globalSources,
	}

	scopes := make([]Scope, 0, len(raw.Scopes))
	for i, rs := range raw.Scopes {
		sources, err := expandSources(raw.Groups, rs.Groups, rs.Sources)
		if err != nil {
			return nil, fmt.Errorf("catalog.scopes[%d]: %w", i, err)
		}
		scopes = append(scopes, Scope{
			Code:    rs.Code,
			Name:    rs.Name,
			Region:  rs.Region,
			Sources: sources,
		})
	}

	return NewCatalog(global, scopes)
}

var validFrequencies = map[string]bool{
	"every_30_minutes": true,
	"hourly":           true,
	"interval":         true,
	"daily":            true,
	"weekly":           true,
}

var validWeekdays = map[string]bool{
	"sunday": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

func validate(cfg *Config) error {
	if len(cfg.Keywords) == 0 {
		return fmt.Errorf("at least one keyword is required")
	}
	for i, kw := range cfg.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("keywords[%d] cannot be empty", i)
		}
	}
	if cfg.RecencyDays < 0 {
		return fmt.Errorf("recency_days must be >= 0, got %d", cfg.RecencyDays)
	}
	if cfg.LimitPerScope < 0 {
		return fmt.Errorf("limit_per_scope must be >= 0, got %d", cfg.LimitPerScope)
	}
	if cfg.ParallelSources < 1 {
		return fmt.Errorf("parallel_sources must be >= 1, got %d", cfg.ParallelSources)
	}

	if !validFrequencies[cfg.Schedule.Frequency] {
		return fmt.Errorf("schedule.frequency %q is not one of every_30_minutes, hourly, interval, daily, weekly", cfg.Schedule.Frequency)
	}
	if cfg.Schedule.Frequency == "interval" && cfg.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be positive when frequency is \"interval\"")
	}
	if _, err := time.Parse("15:04", cfg.Schedule.At); err != nil {
		return fmt.Errorf("schedule.at %q must be HH:MM", cfg.Schedule.At)
	}
	if !validWeekdays[cfg.Schedule.Weekday] {
		return fmt.Errorf("schedule.weekday %q is not a weekday", cfg.Schedule.Weekday)
	}

	if cfg.Cache.Backend != "json" && cfg.Cache.Backend != "sqlite" {
		return fmt.Errorf("cache.backend must be \"json\" or \"sqlite\", got %q", cfg.Cache.Backend)
	}
	if cfg.Cache.MaxAge < 0 {
		return fmt.Errorf("cache.max_age must not be negative")
	}

	if cfg.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}

	for i, b := range cfg.Sources.Boards {
		if b.Domain == "" {
			return fmt.Errorf("sources.boards[%d].domain is required", i)
		}
		if b.SearchURL == "" || b.Item == "" || b.Title == "" {
			return fmt.Errorf("sources.boards[%d] (%s): search_url, item and title are required", i, b.Domain)
		}
	}

	if cfg.Mailbox.Enabled {
		if cfg.Mailbox.Addr == "" || cfg.Mailbox.Username == "" {
			return fmt.Errorf("mailbox.addr and mailbox.username are required when mailbox.enabled is true")
		}
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	case "email":
		e := cfg.Notification.Email
		if e.SMTPHost == "" || e.From == "" || len(e.To) == 0 {
			return fmt.Errorf("notification.email.smtp_host, from and to are required when type is \"email\"")
		}
	default:
		return fmt.Errorf("notification.type %q is not one of log, slack, email", cfg.Notification.Type)
	}

	return nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
