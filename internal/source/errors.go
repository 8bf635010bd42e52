package source

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	ErrListPrinters  = errors.ErrorCode("source_list_printers_failed")
	ErrOpenPrinter   = errors.ErrorCode("source_open_printer_failed")
	ErrListJobs      = errors.ErrorCode("source_list_jobs_failed")
	ErrClosePrinter  = errors.ErrorCode("source_close_printer_failed")
	ErrInvalidHandle = errors.ErrorCode("source_invalid_handle")
	ErrPrinterName   = errors.ErrorCode("source_printer_not_found")
)
