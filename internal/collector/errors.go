package collector

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrListPrinters  = errors.ErrorCode("collector_list_printers_failed")
	ErrNoPrinters    = errors.ErrorCode("collector_no_printers")
)
