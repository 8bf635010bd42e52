package service

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	ErrStartCollect = errors.ErrStartCollect
	ErrStopCollect  = errors.ErrStopCollect
	ErrClosed       = errors.ErrorCode("service_closed")
)
