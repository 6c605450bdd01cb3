package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the net exposure per instrument derived from processed trades.
type Position struct {
	Instrument     string          `gorm:"column:instrument;primaryKey;type:varchar(32)" json:"instrument"`
	NetQuantity    decimal.Decimal `gorm:"column:net_quantity;type:numeric(30,10)" json:"netQuantity"`
	NetNotionalUSD decimal.Decimal `gorm:"column:net_notional_usd;type:numeric(30,2)" json:"netNotionalUsd"`
	TradeCount     int             `gorm:"column:trade_count" json:"tradeCount"`
	LastUpdated    time.Time       `gorm:"column:last_updated" json:"lastUpdated"`
}

func (Position) TableName() string {
	return "positions"
}
