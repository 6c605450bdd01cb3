package exception

import "github.com/yanun0323/errors"

var (
	ErrValidation        = errors.New("trade: validation failed")
	ErrInvalidQuantity   = errors.New("trade: quantity must be greater than zero")
	ErrInvalidSide       = errors.New("trade: side must be BUY or SELL")
	ErrInvalidTransition = errors.New("trade: invalid status transition")
	ErrTradeNotFound     = errors.New("trade: not found")
	ErrTradeExists       = errors.New("trade: id already exists")
	ErrWorkerPanic       = errors.New("trade: worker panic")
)
