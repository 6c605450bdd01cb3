package pipeline

import (
	"time"

	"github.com/yanun0323/errors"

	"tradeflow/internal/model"
	"tradeflow/internal/model/enum"
	"tradeflow/pkg/exception"
)

// Advance moves t to the next status. Only forward steps are allowed:
// QUEUED -> PROCESSING -> DONE | FAILED. Terminal states also stamp ProcessedAt.
func Advance(t *model.Trade, next enum.Status, now time.Time) error {
	if t == nil {
		return exception.ErrNilInstance
	}
	if !t.Status.CanTransition(next) {
		return errors.Wrapf(exception.ErrInvalidTransition, "trade: %s, from: %s, to: %s", t.ID, t.Status, next)
	}
	t.Status = next
	if next.IsTerminal() {
		at := now
		t.ProcessedAt = &at
	}
	return nil
}
