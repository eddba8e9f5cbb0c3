package model

import "errors"

var (
	ErrUnknownInstrument       = errors.New("unknown instrument")
	ErrInvalidProxy            = errors.New("invalid proxy kind")
	ErrInvalidEvent            = errors.New("invalid event")
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionAlreadyCompleted = errors.New("session already completed")
	ErrInvalidResponse         = errors.New("invalid session response")
	ErrInvalidPeriod           = errors.New("invalid period")
	ErrInvalidXP               = errors.New("xp amount must be positive")
	ErrInvalidModule           = errors.New("module name is required")
	ErrInvalidWeek             = errors.New("invalid iso week")
	ErrNotFound                = errors.New("not found")
	ErrInvalidOrg              = errors.New("org_id is required")
)
