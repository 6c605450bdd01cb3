package exception

import "github.com/yanun0323/errors"

var (
	ErrPersistence       = errors.New("store: persistence failed")
	ErrPositionNotFound  = errors.New("store: position not found")
	ErrUnsupportedDriver = errors.New("store: unsupported driver")
)
