package enum

import "strings"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide matches s case-insensitively and returns the canonical side.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SideBuy):
		return SideBuy, true
	case string(SideSell):
		return SideSell, true
	default:
		return "", false
	}
}

func (s Side) IsAvailable() bool {
	return s == SideBuy || s == SideSell
}

// Sign is +1 for BUY, -1 for SELL and 0 otherwise.
func (s Side) Sign() int64 {
	switch s {
	case SideBuy:
		return 1
	case SideSell:
		return -1
	default:
		return 0
	}
}

func (s Side) String() string {
	return string(s)
}
