package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrMalformedInput = errors.New("malformed input")
	ErrNoBookmakers   = errors.New("event has no bookmakers")
	ErrInfeasible     = errors.New("no feasible allocation")
	ErrStrategyFault  = errors.New("strategy fault")
	ErrCircuitOpen    = errors.New("provider circuit open")
	ErrLockHeld       = errors.New("lock held by another process")
)
