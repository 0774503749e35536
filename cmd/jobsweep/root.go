package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsweep/internal/cache"
	"github.com/amishk599/jobsweep/internal/config"
	"github.com/amishk599/jobsweep/internal/connector"
	"github.com/amishk599/jobsweep/internal/engine"
	"github.com/amishk599/jobsweep/internal/filter"
	"github.com/amishk599/jobsweep/internal/model"
	"github.com/amishk599/jobsweep/internal/notifier"
	"github.com/amishk599/jobsweep/internal/ratelimit"
	"github.com/amishk599/jobsweep/internal/retry"
	"github.com/amishk599/jobsweep/internal/secrets"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsweep",
	Short: "Job listing aggregator",
	Long:  "jobsweep searches job boards for a set of keywords across countries and sends a digest of new, recent listings.",
	// No subcommand runs the scheduler, so service units can invoke the bare binary.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSWEEP_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSWEEP_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSWEEP_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	return newLogger(os.Stdout, dbg)
}

func newLogger(w io.Writer, dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.Notifier, error) {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger), nil
	case "email":
		ec := cfg.Notification.Email
		settings := notifier.EmailSettings{
			Host:          ec.SMTPHost,
			Port:          ec.SMTPPort,
			From:          ec.From,
			To:            ec.To,
			Username:      ec.Username,
			SubjectPrefix: ec.SubjectPrefix,
		}
		if ec.Username != "" {
			pw, err := secrets.Password(ec.KeyringAccount, ec.Password)
			if err != nil {
				return nil, fmt.Errorf("smtp password: %w", err)
			}
			settings.Password = pw
		}
		logger.Info("using email notifier", "host", ec.SMTPHost, "recipients", len(ec.To))
		return notifier.NewEmailNotifier(settings, logger), nil
	default:
		return notifier.NewLogNotifier(logger), nil
	}
}

// buildRegistry registers a connector for every source the config can serve.
// Each one is wrapped, innermost first, with a per-attempt timeout, retry and
// the shared per-source rate limiter.
func buildRegistry(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (*connector.Registry, error) {
	reg := connector.NewRegistry(logger)
	limiter := ratelimit.NewSourceLimiter(cfg.RateLimit.RateFor, cfg.RateLimit.Burst)

	register := func(c model.Connector) {
		wrapped := connector.WithTimeout(c, cfg.ConnectorTimeout)
		wrapped = retry.Wrap(wrapped, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger)
		wrapped = ratelimit.Wrap(wrapped, limiter)
		reg.Register(c.Name(), wrapped)
		logger.Debug("registered source", "source", c.Name())
	}

	boards := connector.Presets()
	for _, b := range cfg.Sources.Boards {
		boards[b.Domain] = connector.BoardSpec{
			Domain:      b.Domain,
			Name:        b.Name,
			SearchURL:   b.SearchURL,
			BaseURL:     b.BaseURL,
			Item:        b.Item,
			Title:       b.Title,
			Link:        b.Link,
			Company:     b.Company,
			Location:    b.Location,
			Date:        b.Date,
			DateAttr:    b.DateAttr,
			DateTrim:    b.DateTrim,
			Description: b.Description,
		}
	}
	for _, spec := range boards {
		register(connector.NewBoard(spec, httpClient, time.Now))
	}

	if cfg.Sources.Indeed.APIKey != "" {
		register(connector.NewIndeed(cfg.Sources.Indeed.URL, cfg.Sources.Indeed.APIKey, httpClient, time.Now))
	}

	if mc := cfg.Mailbox; mc.Enabled {
		pw, err := secrets.Password(mc.KeyringAccount, mc.Password)
		if err != nil {
			return nil, fmt.Errorf("imap password: %w", err)
		}
		register(connector.NewMailbox(connector.MailboxSettings{
			Addr:        mc.Addr,
			Username:    mc.Username,
			Password:    pw,
			Folder:      mc.Folder,
			SinceDays:   mc.SinceDays,
			MaxMessages: mc.MaxMessages,
			TTL:         mc.CacheTTL,
			GlobalScope: cfg.Catalog.Global().Code,
		}, logger))
	}

	for _, id := range cfg.Catalog.SourceIDs() {
		if !reg.Registered(id) {
			logger.Info("source has no connector, it will return nothing", "source", id)
		}
	}
	return reg, nil
}

// openBackend opens the configured identity cache. The returned close func is
// never nil.
func openBackend(cfg *config.Config) (cache.Backend, func() error, error) {
	switch cfg.Cache.Backend {
	case "sqlite":
		db, err := cache.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return cache.NewJSONFile(cfg.Cache.Path), func() error { return nil }, nil
	}
}

func engineSettings(cfg *config.Config) engine.Settings {
	return engine.Settings{
		Keywords:        cfg.Keywords,
		Catalog:         cfg.Catalog,
		LimitPerScope:   cfg.LimitPerScope,
		ParallelSources: cfg.ParallelSources,
		CacheMaxAge:     cfg.Cache.MaxAge,
	}
}

// app is everything a run needs, wired from one config.
type app struct {
	cfg     *config.Config
	engine  *engine.Engine
	closeFn func() error
}

func (a *app) Close() error { return a.closeFn() }

type appOptions struct {
	dryRun  bool // empty in-memory cache, log notifier, no lock
	preview bool // real cache opened for reading only, no lock
}

func buildApp(cfg *config.Config, opts appOptions, logger *slog.Logger) (*app, error) {
	httpClient := newHTTPClient()

	reg, err := buildRegistry(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	var (
		backend cache.Backend = cache.NewNop()
		closeFn               = func() error { return nil }
		n       model.Notifier
		engOpts []engine.Option
	)
	switch {
	case opts.dryRun:
		n = notifier.NewLogNotifier(logger)
	case opts.preview:
		backend, closeFn, err = openBackend(cfg)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		n = notifier.NewLogNotifier(logger)
	default:
		backend, closeFn, err = openBackend(cfg)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		n, err = setupNotifier(cfg, httpClient, logger)
		if err != nil {
			_ = closeFn()
			return nil, err
		}
		if cfg.Cache.Lock {
			engOpts = append(engOpts, engine.WithLock(cache.NewLock(cfg.Cache.Path)))
		}
	}

	recency := filter.NewRecency(cfg.RecencyDays, time.Now, logger)
	eng := engine.New(engineSettings(cfg), reg, backend, recency, n, logger, engOpts...)
	return &app{cfg: cfg, engine: eng, closeFn: closeFn}, nil
}
