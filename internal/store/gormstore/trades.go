package gormstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	xerrors "github.com/yanun0323/errors"
	"gorm.io/gorm"

	"tradeflow/internal/clock"
	"tradeflow/internal/model"
	"tradeflow/pkg/exception"
)

type TradeRepository struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewTradeRepository(db *gorm.DB, clk clock.Clock) *TradeRepository {
	if clk == nil {
		clk = clock.System()
	}
	return &TradeRepository{db: db, clock: clk}
}

// Create inserts the trade row and its first history row. A taken ID fails
// with exception.ErrTradeExists.
func (r *TradeRepository) Create(ctx context.Context, t *model.Trade) (*model.Trade, error) {
	if t == nil {
		return nil, exception.ErrNilInstance
	}

	c := t.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.UpdatedAt = r.clock.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&model.Trade{}).Where("id = ?", c.ID).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return exception.ErrTradeExists
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Create(&model.StatusChange{
			TradeID: c.ID,
			Status:  c.Status,
			Reason:  c.FailureReason,
			At:      c.UpdatedAt,
		}).Error
	})
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, exception.ErrTradeExists), errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, exception.ErrTradeExists
	default:
		return nil, persistence(err, "create trade")
	}
}

// Save upserts the trade row and, in the same transaction, appends a history
// row when the stored status differs.
func (r *TradeRepository) Save(ctx context.Context, t *model.Trade) (*model.Trade, error) {
	if t == nil {
		return nil, exception.ErrNilInstance
	}

	c := t.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.UpdatedAt = r.clock.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev model.Trade
		changed := true
		err := tx.Select("status").Where("id = ?", c.ID).Take(&prev).Error
		switch {
		case err == nil:
			changed = prev.Status != c.Status
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Save(c).Error; err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return tx.Create(&model.StatusChange{
			TradeID: c.ID,
			Status:  c.Status,
			Reason:  c.FailureReason,
			At:      c.UpdatedAt,
		}).Error
	})
	if err != nil {
		return nil, persistence(err, "save trade")
	}
	return c, nil
}

func (r *TradeRepository) FindByID(ctx context.Context, id string) (*model.Trade, error) {
	var t model.Trade
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exception.ErrTradeNotFound
		}
		return nil, persistence(err, "find trade")
	}
	return &t, nil
}

func (r *TradeRepository) FindAll(ctx context.Context) ([]model.Trade, error) {
	var trades []model.Trade
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&trades).Error; err != nil {
		return nil, persistence(err, "find trades")
	}
	return trades, nil
}

func (r *TradeRepository) History(ctx context.Context, id string) ([]model.StatusChange, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	var history []model.StatusChange
	if err := r.db.WithContext(ctx).Where("trade_id = ?", id).Order("id").Find(&history).Error; err != nil {
		return nil, persistence(err, "find trade history")
	}
	return history, nil
}

func persistence(err error, msg string) error {
	return exception.Classify(exception.ErrPersistence, xerrors.Wrap(err, msg))
}
