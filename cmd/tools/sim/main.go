package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tradeflow/internal/bus"
	"tradeflow/internal/clock"
	"tradeflow/internal/enrich"
	"tradeflow/internal/events"
	"tradeflow/internal/generator"
	"tradeflow/internal/model/enum"
	"tradeflow/internal/obs"
	"tradeflow/internal/pipeline"
	"tradeflow/internal/position"
	"tradeflow/internal/service"
	"tradeflow/internal/store/memory"
)

type summary struct {
	Trades    int               `json:"trades"`
	Metrics   obs.Snapshot      `json:"metrics"`
	Events    map[string]int    `json:"events"`
	Positions position.Snapshot `json:"positions"`
}

func main() {
	count := flag.Int("trades", 1000, "Number of trades to push through the pipeline")
	workers := flag.Int("workers", pipeline.DefaultWorkers, "Worker count")
	capacity := flag.Int("capacity", 100, "Queue capacity")
	seed := flag.Int64("seed", 1, "Seed for trade and rate generation (0=time based)")
	failureRate := flag.Float64("failure-rate", 0, "Probability of an FX lookup failing")
	maxDelay := flag.Duration("max-delay", 0, "Upper bound of simulated FX latency")
	timeout := flag.Duration("timeout", time.Minute, "Give up waiting for trades after this long")
	flag.Parse()

	if *count <= 0 {
		log.Fatalf("trades must be > 0")
	}

	clk := clock.System()
	trades := memory.NewTradeStore(clk)
	positions := memory.NewPositionStore()
	publisher := &events.MemoryPublisher{}
	metrics := obs.NewMetrics(clk.Now())
	channel := bus.NewTradeChannel(*capacity)

	simCfg := enrich.DefaultSimulatedConfig()
	simCfg.Seed = *seed
	simCfg.FailureRate = *failureRate
	simCfg.MaxDelay = *maxDelay
	source, err := enrich.NewSimulatedSource(simCfg)
	if err != nil {
		log.Fatalf("fx source init failed: %v", err)
	}

	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Store:   trades,
		Rates:   enrich.NewClient(source, enrich.ClientConfig{}),
		Clock:   clk,
		Metrics: metrics,
		Events:  publisher,
	})
	pool := pipeline.NewPool(pipeline.PoolConfig{Workers: *workers}, channel, processor, metrics)
	svc := service.New(service.Config{
		Trades:    trades,
		Positions: positions,
		Channel:   channel,
		Events:    publisher,
		Clock:     clk,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return pool.Run(egCtx)
	})
	eg.Go(func() error {
		defer channel.Close()
		gen := generator.NewGenerator(generator.GeneratorConfig{Seed: *seed})
		for i := 0; i < *count; i++ {
			if _, err := svc.Submit(egCtx, gen.Next(clk.Now())); err != nil {
				return err
			}
		}
		return waitProcessed(egCtx, metrics, uint64(*count))
	})
	if err := eg.Wait(); err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	aggregator := position.NewAggregator(trades, positions, position.Config{Clock: clk})
	aggregated, err := aggregator.Aggregate(context.Background())
	if err != nil {
		log.Fatalf("aggregation failed: %v", err)
	}

	all, err := trades.FindAll(context.Background())
	if err != nil {
		log.Fatalf("list trades failed: %v", err)
	}
	reducer := position.NewReducer()
	for _, t := range all {
		if t.Status == enum.StatusDone {
			reducer.Apply(t)
		}
	}
	if err := position.Compare(reducer.Snapshot(clk.Now()), aggregated); err != nil {
		log.Fatalf("position mismatch: %v", err)
	}

	out := summary{
		Trades:  len(all),
		Metrics: metrics.Snapshot(clk.Now()),
		Events: map[string]int{
			string(enum.EventTradeReceived): publisher.Count(enum.EventTradeReceived),
			string(enum.EventTradeDone):     publisher.Count(enum.EventTradeDone),
			string(enum.EventTradeFailed):   publisher.Count(enum.EventTradeFailed),
		},
		Positions: aggregated,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("write summary failed: %v", err)
	}
	fmt.Fprintf(os.Stderr, "sim ok trades=%d done=%d failed=%d\n", out.Trades, out.Metrics.Done, out.Metrics.Failed)
}

func waitProcessed(ctx context.Context, metrics *obs.Metrics, want uint64) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for metrics.Processed() < want {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for trades: processed=%d want=%d: %w", metrics.Processed(), want, ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
