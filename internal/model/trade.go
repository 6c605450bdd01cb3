package model

import (
	"time"

	"github.com/shopspring/decimal"

	"tradeflow/internal/model/enum"
)

// Trade is a single trade moving through the pipeline.
//
// Side holds the caller's raw value until validation canonicalises it.
// NotionalUSD is only set once the trade reaches DONE.
type Trade struct {
	ID            string              `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	TradeDate     time.Time           `gorm:"column:trade_date;type:date" json:"tradeDate"`
	Instrument    string              `gorm:"column:instrument;type:varchar(32);index" json:"instrument"`
	Side          string              `gorm:"column:side;type:varchar(8)" json:"side"`
	Quantity      decimal.NullDecimal `gorm:"column:quantity;type:numeric(30,10)" json:"quantity"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(30,10)" json:"price"`
	Currency      string              `gorm:"column:currency;type:varchar(8)" json:"currency"`
	Counterparty  string              `gorm:"column:counterparty;type:varchar(128)" json:"counterparty"`
	Status        enum.Status         `gorm:"column:status;type:varchar(16);index" json:"status"`
	FailureReason string              `gorm:"column:failure_reason;type:text" json:"failureReason,omitempty"`
	FxRate        decimal.NullDecimal `gorm:"column:fx_rate;type:numeric(20,8)" json:"fxRate"`
	NotionalUSD   decimal.NullDecimal `gorm:"column:notional_usd;type:numeric(30,2)" json:"notionalUsd"`
	CreatedAt     time.Time           `gorm:"column:created_at" json:"createdAt"`
	ProcessedAt   *time.Time          `gorm:"column:processed_at" json:"processedAt,omitempty"`
	UpdatedAt     time.Time           `gorm:"column:updated_at" json:"updatedAt"`
}

func (Trade) TableName() string {
	return "trades"
}

// Clone returns a copy that shares no mutable state with t.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	c := *t
	if t.ProcessedAt != nil {
		at := *t.ProcessedAt
		c.ProcessedAt = &at
	}
	return &c
}

// CanonicalSide returns the parsed side; ok is false for unknown values.
func (t *Trade) CanonicalSide() (enum.Side, bool) {
	return enum.ParseSide(t.Side)
}

// StatusChange is one row of a trade's status history.
type StatusChange struct {
	ID      uint64      `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	TradeID string      `gorm:"column:trade_id;type:varchar(64);index" json:"tradeId"`
	Status  enum.Status `gorm:"column:status;type:varchar(16)" json:"status"`
	Reason  string      `gorm:"column:reason;type:text" json:"reason,omitempty"`
	At      time.Time   `gorm:"column:at" json:"at"`
}

func (StatusChange) TableName() string {
	return "trade_status_history"
}
