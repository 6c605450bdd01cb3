package exception

import "github.com/yanun0323/errors"

var (
	ErrJournalClosed = errors.New("journal: closed")
	ErrJournalFull   = errors.New("journal: queue full")
)
