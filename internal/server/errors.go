package server

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	ErrListen   = errors.ErrorCode("server_listen_failed")
	ErrShutdown = errors.ErrShutdownFailed
)
