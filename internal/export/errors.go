package export

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	ErrOpenFile    = errors.ErrorCode("export_open_failed")
	ErrWriteFile   = errors.ErrorCode("export_write_failed")
	ErrInvalidPath = errors.ErrorCode("export_invalid_path")
	ErrParseRow    = errors.ErrorCode("export_parse_row_failed")
)
