package errors

// ErrorCode identifies a failure kind. Codes shared across packages live in
// codes.go; package specific ones in that package's errors.go.
type ErrorCode string

// Error is a coded error. Data carries the offending value (a path, a
// printer name) and is rendered after the message.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	Data() any
	Unwrap() error
}

type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
