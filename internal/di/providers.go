package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"GrowthLens/internal/domain/models"
	"GrowthLens/internal/domain/repository"
	"GrowthLens/internal/export"
	"GrowthLens/internal/handler/api"
	internalrepo "GrowthLens/internal/repository"
	icache "GrowthLens/internal/service/cache"
	"GrowthLens/internal/service/mailer"
	"GrowthLens/internal/service/ratelimit"
	"GrowthLens/internal/service/thinkingdata"
	"GrowthLens/internal/usecase"
	pkgch "GrowthLens/pkg/clickhouse"
	"GrowthLens/pkg/config"
	xhttp "GrowthLens/pkg/http"
	pkgkafka "GrowthLens/pkg/kafka"
	applogger "GrowthLens/pkg/logger"
	"GrowthLens/pkg/metrics"
	pkgmysql "GrowthLens/pkg/mysql"
	"GrowthLens/pkg/server"
)

// Sources maps report source names to table sources.
type Sources map[string]repository.TableSource

const connectTimeout = 15 * time.Second

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the application logger. With the collector enabled,
// error entries are also aggregated to the Kafka log topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logging.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.CountThreshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideSources opens every enabled data source. The file source is always
// available.
func ProvideSources(cfg *config.Config, l *applogger.Logger) (Sources, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	sources := Sources{"file": internalrepo.NewFileTableSource(cfg.Sources.Files.Dir, l)}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	if c := cfg.Sources.ClickHouse; c.Enabled {
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(c.Host),
			pkgch.WithPort(c.Port),
			pkgch.WithDatabase(c.Database),
			pkgch.WithCredentials(c.User, c.Password),
			pkgch.WithHTTP(c.UseHTTP),
			pkgch.WithTimeouts(c.DialTimeout, c.ReadTimeout),
			pkgch.WithMaxExecutionTime(c.MaxExecutionTime),
			pkgch.WithReadOnly(true),
		)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		closers = append(closers, client.Close)
		sources["clickhouse"] = internalrepo.NewSQLTableSource(client.DB(), "clickhouse", c.MaxExecutionTime, l)
	}

	if c := cfg.Sources.MySQL; c.Enabled {
		db, err := pkgmysql.Open(ctx, c.DSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mysql: %w", err)
		}
		closers = append(closers, db.Close)
		sources["mysql"] = internalrepo.NewSQLTableSource(db, "mysql", 0, l)
	}

	if c := cfg.Sources.ThinkingData; c.Enabled {
		sources["thinkingdata"] = thinkingdata.New(thinkingdata.Config{
			URL:       c.URL,
			QueryPath: c.QueryPath,
			User:      c.User,
			Password:  c.Password,
			Token:     c.Token,
			Timeout:   c.Timeout,
		}, l)
	}

	return sources, cleanup, nil
}

// ProvidePublisher returns the Kafka result publisher, or nil without a producer.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

func ProvideNotifier(cfg *config.Config, l *applogger.Logger) repository.Notifier {
	return mailer.New(mailer.Config{
		Server:   cfg.SMTP.Server,
		Port:     cfg.SMTP.Port,
		Sender:   cfg.SMTP.Sender,
		Password: cfg.SMTP.Password,
		FromName: cfg.SMTP.FromName,
	}, l)
}

func ProvideExporter(cfg *config.Config) usecase.Exporter {
	return export.NewXLSXWriter(cfg.Export.Dir)
}

// Reports converts configured reports, filling unset model parameters from
// the analytics section.
func Reports(cfg *config.Config) []models.Report {
	out := make([]models.Report, 0, len(cfg.Reports))
	for _, r := range cfg.Reports {
		rep := models.Report{
			Name:                 r.Name,
			Kind:                 models.ReportKind(r.Kind),
			Source:               r.Source,
			Query:                r.Query,
			Schedule:             r.Schedule,
			Recipients:           r.Recipients,
			ExportDir:            cfg.Export.Dir,
			TargetCostPerInstall: r.TargetCostPerInstall,
			NetRevenueShare:      r.NetRevenueShare,
			MonthsToPredict:      r.MonthsToPredict,
			GrowthFactor:         r.GrowthFactor,
		}
		if rep.TargetCostPerInstall == 0 {
			rep.TargetCostPerInstall = cfg.Analytics.LTV.TargetCostPerInstall
		}
		if rep.NetRevenueShare == 0 {
			rep.NetRevenueShare = cfg.Analytics.LTV.NetRevenueShare
		}
		if rep.MonthsToPredict == 0 {
			rep.MonthsToPredict = cfg.Analytics.MAU.MonthsToPredict
		}
		if rep.GrowthFactor == 0 {
			rep.GrowthFactor = cfg.Analytics.MAU.GrowthFactor
		}
		out = append(out, rep)
	}
	return out
}

func ProvideReportRunner(
	cfg *config.Config,
	sources Sources,
	exporter usecase.Exporter,
	publisher repository.ResultPublisher,
	notifier repository.Notifier,
	recorder *metrics.Recorder,
	l *applogger.Logger,
) *usecase.ReportRunner {
	return usecase.NewReportRunner(
		usecase.ReportRunnerConfig{
			FitMaxEvaluations: cfg.Analytics.LTV.FitMaxEvaluations,
			BaselineMonths:    cfg.Analytics.MAU.BaselineMonths,
		},
		Reports(cfg),
		sources,
		exporter,
		publisher,
		notifier,
		recorder,
		l,
	)
}

// ProvideScheduler bounds each scheduled run by the longest source timeout.
func ProvideScheduler(runner *usecase.ReportRunner, cfg *config.Config, l *applogger.Logger) *usecase.Scheduler {
	timeout := max(cfg.Sources.ThinkingData.Timeout, cfg.Sources.ClickHouse.MaxExecutionTime) + time.Minute
	return usecase.NewScheduler(runner, Reports(cfg), timeout, l)
}

// ProvideCache selects Redis when enabled, otherwise an in-process cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (icache.BytesCache, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return icache.NewTTLCache(1024), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	rc, err := icache.NewRedisCache(ctx, icache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("addr", cfg.Cache.Redis.Addr))
	return rc, func() { _ = rc.Close() }, nil
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.PerSecond, cfg.Server.RateLimit.Burst)
}

// ProvideHTTPServer registers the API handlers on an echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.ReportRunner,
	recorder *metrics.Recorder,
	cache icache.BytesCache,
	limiter *ratelimit.Limiter,
) *xhttp.Server {
	growth := api.NewGrowthHandler(l, recorder, api.Defaults{
		TargetCostPerInstall: cfg.Analytics.LTV.TargetCostPerInstall,
		NetRevenueShare:      cfg.Analytics.LTV.NetRevenueShare,
		FitMaxEvaluations:    cfg.Analytics.LTV.FitMaxEvaluations,
		MonthsToPredict:      cfg.Analytics.MAU.MonthsToPredict,
		GrowthFactor:         cfg.Analytics.MAU.GrowthFactor,
		BaselineMonths:       cfg.Analytics.MAU.BaselineMonths,
	})
	growth.SetCache(cache, cfg.Cache.TTL)

	return xhttp.NewServer(l,
		[]xhttp.Handler{api.HealthHandler{}, growth, api.NewReportsHandler(l, runner)},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(cfg.Metrics.Enabled, prometheus.DefaultRegisterer, prometheus.DefaultGatherer),
		xhttp.WithMetricsPath(cfg.Metrics.Path),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMiddleware(api.RateLimit(limiter, l)),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, httpServer, scheduler, limiter)
}
