package exception

import "github.com/yanun0323/errors"

var (
	ErrEnrichment        = errors.New("enrich: rate unavailable")
	ErrEnrichmentTimeout = errors.New("enrich: timed out")
	ErrSourceUnavailable = errors.New("enrich: source unavailable")
	ErrCircuitOpen       = errors.New("enrich: circuit breaker open")
)
