package generator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
)

var (
	DefaultInstruments    = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "FB", "NFLX", "NVDA", "BABA", "INTC"}
	DefaultCounterparties = []string{"JP Morgan", "Goldman Sachs", "Morgan Stanley", "Citibank", "Bank of America"}
	DefaultCurrencies     = []string{"USD", "EUR", "GBP", "JPY", "AUD"}
)

// GeneratorConfig controls the shape of synthetic trades.
type GeneratorConfig struct {
	Seed           int64
	Instruments    []string
	Counterparties []string
	Currencies     []string
	// Quantities are drawn from [0, MaxQuantity), prices from [0, MaxPrice).
	MaxQuantity int64
	MaxPrice    int64
}

// Generator creates random trades. Quantity 0 is a possible draw and fails
// validation downstream.
type Generator struct {
	cfg GeneratorConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	if len(cfg.Instruments) == 0 {
		cfg.Instruments = DefaultInstruments
	}
	if len(cfg.Counterparties) == 0 {
		cfg.Counterparties = DefaultCounterparties
	}
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = DefaultCurrencies
	}
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = 10000
	}
	if cfg.MaxPrice <= 0 {
		cfg.MaxPrice = 500
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Next creates the next random trade.
func (g *Generator) Next(now time.Time) *model.Trade {
	g.mu.Lock()
	defer g.mu.Unlock()

	side := enum.SideBuy
	if g.rng.Intn(2) == 1 {
		side = enum.SideSell
	}
	return &model.Trade{
		TradeDate:    now.Truncate(24 * time.Hour),
		Instrument:   g.cfg.Instruments[g.rng.Intn(len(g.cfg.Instruments))],
		Side:         side.String(),
		Quantity:     decimal.NewNullDecimal(decimal.NewFromInt(g.rng.Int63n(g.cfg.MaxQuantity))),
		Price:        decimal.NewFromInt(g.rng.Int63n(g.cfg.MaxPrice)),
		Currency:     g.cfg.Currencies[g.rng.Intn(len(g.cfg.Currencies))],
		Counterparty: g.cfg.Counterparties[g.rng.Intn(len(g.cfg.Counterparties))],
		Status:       enum.StatusQueued,
		CreatedAt:    now,
	}
}
