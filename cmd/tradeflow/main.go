package main

import (
	"context"
	"flag"
	"log"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"golang.org/x/sync/errgroup"

	"tradeflow/internal/api"
	"tradeflow/internal/bus"
	"tradeflow/internal/clock"
	"tradeflow/internal/config"
	"tradeflow/internal/enrich"
	"tradeflow/internal/events"
	"tradeflow/internal/faulttolerance"
	"tradeflow/internal/generator"
	"tradeflow/internal/obs"
	"tradeflow/internal/pipeline"
	"tradeflow/internal/position"
	"tradeflow/internal/service"
	"tradeflow/internal/store"
	"tradeflow/internal/store/gormstore"
	"tradeflow/internal/store/memory"
	"tradeflow/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	migrate := flag.Bool("migrate", false, "Apply database migrations before starting (postgres only)")
	migrateOnly := flag.Bool("migrate-only", false, "Apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logs.Infof("config: %s", cfg)

	if cfg.Features.EnableProfiling {
		profiler, err := startProfiler(cfg.Profiling.ServerAddress)
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		logs.Infof("shutdown signal received")
		cancel()
	}()

	clk := clock.System()
	trades, positions, closeStore, err := openStores(ctx, cfg, clk, *migrate || *migrateOnly)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer closeStore()
	if *migrateOnly {
		return
	}

	publisher, err := openPublisher(cfg)
	if err != nil {
		log.Fatalf("event publisher init failed: %v", err)
	}
	defer publisher.Close()

	simCfg := enrich.DefaultSimulatedConfig()
	simCfg.Seed = cfg.Enrichment.Seed
	simCfg.FailureRate = cfg.Enrichment.FailureRate
	simCfg.MaxDelay = cfg.Enrichment.MaxDelay.Std()
	source, err := enrich.NewSimulatedSource(simCfg)
	if err != nil {
		log.Fatalf("fx source init failed: %v", err)
	}
	rates := enrich.NewClient(source, enrich.ClientConfig{
		Pair:            cfg.Enrichment.Pair,
		Timeout:         cfg.Enrichment.Timeout.Std(),
		BreakerFailures: cfg.Enrichment.BreakerFailures,
		BreakerCooldown: cfg.Enrichment.BreakerCooldown.Std(),
	})

	metrics := obs.NewMetrics(clk.Now())
	channel := bus.NewTradeChannel(cfg.Queue.Capacity)
	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Store:   trades,
		Rates:   rates,
		Clock:   clk,
		Metrics: metrics,
		Events:  publisher,
		Retry: faulttolerance.RetryConfig{
			MaxAttempts: cfg.Retry.Attempts,
			BaseDelay:   cfg.Retry.BaseDelay.Std(),
			MaxDelay:    cfg.Retry.MaxDelay.Std(),
		},
	})
	pool := pipeline.NewPool(pipeline.PoolConfig{
		Workers:    cfg.Pool.Workers,
		MaxWorkers: cfg.Pool.MaxWorkers,
	}, channel, processor, metrics)

	svc := service.New(service.Config{
		Trades:    trades,
		Positions: positions,
		Channel:   channel,
		Events:    publisher,
		Clock:     clk,
	})
	monitor := obs.NewMonitor(metrics, obs.MonitorConfig{
		Interval: cfg.Monitor.Interval.Std(),
		Depth:    svc.QueueDepth,
		Clock:    clk,
	})
	scope, _ := position.ParseScope(cfg.Aggregator.Scope)
	aggregator := position.NewAggregator(trades, positions, position.Config{
		Interval: cfg.Aggregator.Interval.Std(),
		Scope:    scope,
		Clock:    clk,
	})

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return pool.Run(ctx)
	})
	eg.Go(func() error {
		return monitor.Run(ctx)
	})
	eg.Go(func() error {
		return aggregator.Run(ctx)
	})
	eg.Go(func() error {
		<-ctx.Done()
		channel.Close()
		return nil
	})
	if cfg.Features.EnableProducer {
		producer := generator.NewProducer(
			generator.NewGenerator(generator.GeneratorConfig{Seed: cfg.Producer.Seed}),
			svc,
			generator.ProducerConfig{
				Interval:     cfg.Producer.Interval.Std(),
				InitialDelay: cfg.Producer.InitialDelay.Std(),
				Limit:        cfg.Producer.Limit,
				Clock:        clk,
			},
		)
		eg.Go(func() error {
			sent, err := producer.Run(ctx)
			logs.Infof("producer stopped, sent=%d", sent)
			return err
		})
	}
	if cfg.Features.EnableHTTP {
		router := api.NewRouter(api.RouterConfig{
			TradeHandler:   api.NewTradeHandler(svc),
			MetricsHandler: api.NewMetricsHandler(monitor),
		})
		server := api.NewServer(cfg.HTTP.Addr, router)
		eg.Go(func() error {
			return server.Run(ctx)
		})
	}

	if err := eg.Wait(); err != nil {
		logs.Errorf("tradeflow stopped with error, err: %+v", err)
	}

	// Final pass so positions reflect everything that finished before exit.
	finalCtx, finalCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer finalCancel()
	if snap, err := aggregator.Aggregate(finalCtx); err != nil {
		logs.Errorf("final aggregation failed, err: %+v", err)
	} else {
		logs.Infof("final positions: %d instruments", len(snap.Positions))
	}
	monitor.Report()
}

func openStores(ctx context.Context, cfg config.Config, clk clock.Clock, migrate bool) (store.TradeStore, store.PositionStore, func(), error) {
	if cfg.Store.Driver == config.StoreMemory {
		if migrate {
			logs.Warnf("migrate requested with memory store, skipped")
		}
		return memory.NewTradeStore(clk), memory.NewPositionStore(), func() {}, nil
	}

	client, err := conn.New(conn.Option{
		Host:         cfg.Store.Host,
		Port:         cfg.Store.Port,
		User:         cfg.Store.User,
		Password:     cfg.Store.Password,
		Database:     cfg.Store.Database,
		SSLMode:      cfg.Store.SSLMode,
		ConnString:   cfg.Store.DSN,
		MaxOpenConns: cfg.Store.MaxConns,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logs.Errorf("close postgres, err: %+v", err)
		}
	}
	if err := client.Ping(ctx); err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	if migrate {
		sqlDB, err := client.SQL()
		if err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		if err := store.Migrate(ctx, sqlDB); err != nil {
			closeFn()
			return nil, nil, nil, err
		}
	}
	return gormstore.NewTradeRepository(client.DB(), clk), gormstore.NewPositionRepository(client.DB()), closeFn, nil
}

func openPublisher(cfg config.Config) (events.Publisher, error) {
	switch {
	case cfg.Features.EnableKafka:
		return events.NewKafkaPublisher(events.KafkaConfig{
			Broker: cfg.Kafka.Broker,
			Topic:  cfg.Kafka.Topic,
		})
	case cfg.Journal.Dir != "":
		return events.NewJournalPublisher(events.JournalConfig{
			Dir:           cfg.Journal.Dir,
			FlushInterval: cfg.Journal.FlushInterval.Std(),
		})
	default:
		return events.LogPublisher{}, nil
	}
}

func startProfiler(addr string) (*pyroscope.Profiler, error) {
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: "tradeflow",
		ServerAddress:   addr,
		Tags: map[string]string{
			"env": "local",
		},
		Logger: emptyLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
}

type emptyLogger struct{}

func (emptyLogger) Infof(string, ...interface{})  {}
func (emptyLogger) Debugf(string, ...interface{}) {}
func (emptyLogger) Errorf(string, ...interface{}) {}
