package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tradeflow/internal/model"
	"tradeflow/pkg/exception"
)

type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) Save(ctx context.Context, p *model.Position) (*model.Position, error) {
	if p == nil {
		return nil, exception.ErrNilInstance
	}
	c := *p
	if err := r.db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, persistence(err, "save position")
	}
	return &c, nil
}

func (r *PositionRepository) FindByID(ctx context.Context, instrument string) (*model.Position, error) {
	var p model.Position
	err := r.db.WithContext(ctx).Where("instrument = ?", instrument).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exception.ErrPositionNotFound
		}
		return nil, persistence(err, "find position")
	}
	return &p, nil
}

func (r *PositionRepository) FindAll(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position
	if err := r.db.WithContext(ctx).Order("instrument").Find(&positions).Error; err != nil {
		return nil, persistence(err, "find positions")
	}
	return positions, nil
}
