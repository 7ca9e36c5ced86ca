package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"autoblock/config"
	"autoblock/ipset"
	"autoblock/logevents"
	"autoblock/logging"
	"autoblock/metrics"
	"autoblock/objectstore"
	"autoblock/rangeset"
	"autoblock/ratelimit"
	"autoblock/reporting"
	"autoblock/tlsverification"
	"autoblock/violationstore"
	"autoblock/waf"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type app struct {
	logger   zerolog.Logger
	cfg      config.Config
	reader   *logevents.Reader
	handler  waf.LogHandler
	recorder metrics.Recorder

	closers   []func() error
	closeOnce sync.Once
}

func newApp(logger zerolog.Logger, cfg config.Config) (a *app, err error) {
	a = &app{
		logger:   logger.With().Str("env", cfg.Environment).Logger(),
		cfg:      cfg,
		recorder: metrics.NewRecorder(),
	}

	defer func() {
		if err != nil {
			a.close()
			a = nil
		}
	}()

	logObjects, err := objectstore.NewS3(a.logger, objectstore.S3Options{
		Endpoint:        cfg.S3.Endpoint,
		Region:          cfg.Region,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Insecure:        cfg.S3.Insecure,
	})
	if err != nil {
		err = fmt.Errorf("failed to create S3 client: %w", err)
		return
	}

	var stateObjects objectstore.Store
	switch cfg.State.Backend {
	case config.BackendMemory:
		stateObjects = objectstore.NewMemory()
	case config.BackendRedis:
		stateObjects = objectstore.NewRedis(objectstore.RedisOptions{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	default:
		stateObjects = logObjects
	}

	client, err := ipset.NewClient(ipset.Scope(cfg.WAFScope), cfg.Region)
	if err != nil {
		err = fmt.Errorf("failed to create WAF client: %w", err)
		return
	}
	gateway := ipset.NewGateway(a.logger, client, ipset.Options{DryRun: cfg.DryRun})

	var notifier waf.Notifier
	if cfg.Slack.WebhookURL != "" {
		notifier = reporting.NewSlackNotifier(a.logger, cfg.Slack.WebhookURL, cfg.Slack.Icon)
	}

	rl, err := a.newResultsLogger()
	if err != nil {
		return
	}

	reporter, err := a.newReporter(notifier)
	if err != nil {
		return
	}

	rateLimiting, err := ratelimit.NewProcessor(
		a.logger,
		cfg.RateLimitConfig(),
		violationstore.NewStore(a.logger, stateObjects),
		rangeset.NewBuilder(a.logger, gateway),
		gateway,
		reporter,
		rl,
		a.recorder,
	)
	if err != nil {
		return
	}

	processors := []waf.Processor{rateLimiting}
	if cfg.TLS.Enabled {
		processors = append(processors, tlsverification.NewProcessor(a.logger, cfg.Environment, notifier, tlsverification.Options{
			AcceptableVersions: cfg.TLS.AcceptableVersions,
			SuppressedPaths:    cfg.TLS.SuppressedPaths,
		}))
	}

	decoder := logevents.NewDecoder(a.logger, cfg.Format(), a.recorder)
	a.reader = logevents.NewReader(a.logger, decoder, logObjects, logevents.ReaderOptions{
		Concurrency: cfg.Logs.Concurrency,
		LocalScope:  cfg.LocalScope(),
	})

	a.handler = waf.NewLogHandler(a.logger, cfg.Environment, a.reader, processors, notifier, rl, a.recorder)
	return
}

func (a *app) newResultsLogger() (rl waf.ResultsLogger, err error) {
	if a.cfg.ResultsLog == "" {
		rl = logging.NewZerologResultsLogger(a.logger)
		return
	}

	frl, err := logging.NewFileResultsLogger(a.logger, logging.NewLogFileSystem(), a.cfg.ResultsLog)
	if err != nil {
		err = fmt.Errorf("failed to open results log: %w", err)
		return
	}
	a.closers = append(a.closers, frl.Close)
	rl = frl
	return
}

func (a *app) newReporter(notifier waf.Notifier) (reporter waf.SyncReporter, err error) {
	var hostnames reporting.HostnameResolver
	if hostnames, err = reporting.NewDNSResolver(a.logger, a.cfg.Reporting.DNSServer); err != nil {
		a.logger.Warn().Err(err).Msg("Reverse DNS lookups disabled")
		hostnames, err = nil, nil
	}

	var countries reporting.CountryLookup
	if a.cfg.Reporting.GeoIPDatabase != "" {
		var db *reporting.GeoIP
		if db, err = reporting.OpenGeoIP(a.logger, a.cfg.Reporting.GeoIPDatabase); err != nil {
			return
		}
		a.closers = append(a.closers, db.Close)
		countries = db
	}

	reporter = reporting.NewReporter(a.logger, a.cfg.Environment, notifier, hostnames, countries)
	return
}

func (a *app) run(ctx context.Context, uris []string) error {
	a.serveMetrics()
	return a.handler.HandleLogObjects(ctx, uris)
}

// schedule processes the configured log window on every tick of the cron spec until ctx is done.
func (a *app) schedule(ctx context.Context) error {
	if a.cfg.Logs.Bucket == "" {
		return fmt.Errorf("%w: logs.bucket is required to schedule runs", config.ErrInvalid)
	}

	a.serveMetrics()

	cl := cronLogger{logger: a.logger}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))
	if _, err := c.AddFunc(a.cfg.Schedule.Spec, func() { a.tick(ctx, time.Now()) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.cfg.Schedule.Spec, err)
	}

	a.logger.Info().Str("schedule", a.cfg.Schedule.Spec).Dur("window", a.cfg.Schedule.Window).Msg("Starting scheduler")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	a.logger.Info().Msg("Scheduler stopped")
	return nil
}

func (a *app) tick(ctx context.Context, now time.Time) {
	to := now.UTC().Truncate(time.Minute)
	from := to.Add(-a.cfg.Schedule.Window)

	batch, err := a.reader.ReadWindow(ctx, a.cfg.Logs.Bucket, a.cfg.Logs.Prefix, from, to)
	if err != nil {
		a.logger.Error().Err(err).Str("bucket", a.cfg.Logs.Bucket).Msg("Failed to read log window")
		return
	}

	if failed := a.handler.HandleBatch(ctx, batch); len(failed) > 0 {
		a.logger.Warn().Strs("failed", failed).Msg("Scheduled run finished with failing processors")
	}
}

func (a *app) serveMetrics() {
	if a.cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.recorder.Handler())
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", a.cfg.MetricsAddr).Msg("Metrics server failed")
		}
	}()

	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				a.logger.Warn().Err(err).Msg("Error while closing")
			}
		}
	})
}

// cronLogger routes the scheduler's own messages to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
