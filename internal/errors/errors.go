// Package errors provides unified error handling with structured error codes.
// Codes travel over gRPC as errdetails.ErrorInfo reasons so every recognition
// backend reports failures the same way.
package errors

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode identifies a failure class.
type ErrorCode string

const (
	ErrorCodeUnknown         ErrorCode = "UNKNOWN"
	ErrorCodeInternal        ErrorCode = "INTERNAL"
	ErrorCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrorCodeUnavailable     ErrorCode = "UNAVAILABLE"
	ErrorCodeTimeout         ErrorCode = "TIMEOUT"
	ErrorCodeCancelled       ErrorCode = "CANCELLED"
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"

	// Recognition service failed, timed out or the breaker is open
	ErrorCodeRecognitionFailed ErrorCode = "RECOGNITION_FAILED"
	// Recognition service answered with something we cannot read
	ErrorCodeRecognitionInvalidResponse ErrorCode = "RECOGNITION_INVALID_RESPONSE"

	ErrorCodeParseFailed ErrorCode = "PARSE_FAILED"

	// Configuration errors are fatal at startup
	ErrorCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrorCodeConfigMissing ErrorCode = "CONFIG_MISSING"

	ErrorCodeStoreFailed ErrorCode = "STORE_FAILED"
)

// ErrorInfoDomain is the errdetails.ErrorInfo domain for our codes.
const ErrorInfoDomain = "matchscan"

// grpcCodeMap maps ErrorCode to gRPC status codes.
var grpcCodeMap = map[ErrorCode]codes.Code{
	ErrorCodeUnknown:                    codes.Unknown,
	ErrorCodeInternal:                   codes.Internal,
	ErrorCodeInvalidArgument:            codes.InvalidArgument,
	ErrorCodeUnavailable:                codes.Unavailable,
	ErrorCodeTimeout:                    codes.DeadlineExceeded,
	ErrorCodeCancelled:                  codes.Canceled,
	ErrorCodeRateLimited:                codes.ResourceExhausted,
	ErrorCodeRecognitionFailed:          codes.Internal,
	ErrorCodeRecognitionInvalidResponse: codes.Internal,
	ErrorCodeParseFailed:                codes.InvalidArgument,
	ErrorCodeConfigInvalid:              codes.InvalidArgument,
	ErrorCodeConfigMissing:              codes.FailedPrecondition,
	ErrorCodeStoreFailed:                codes.Internal,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     ErrorCode
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus returns a gRPC status with an ErrorInfo detail attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	info := &errdetails.ErrorInfo{Reason: string(e.Code), Domain: ErrorInfoDomain, Metadata: e.Metadata}
	if withInfo, err := st.WithDetails(info); err == nil {
		return withInfo
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError extracts an AppError from a gRPC error if present.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: ErrorCodeUnknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorInfoDomain {
			return &AppError{
				Code:     ErrorCode(info.GetReason()),
				Message:  st.Message(),
				Metadata: info.GetMetadata(),
				Cause:    err,
			}
		}
	}

	return &AppError{Code: grpcToErrorCode(st.Code()), Message: st.Message(), Cause: err}
}

// grpcToErrorCode maps gRPC codes back to our error codes (best effort).
func grpcToErrorCode(c codes.Code) ErrorCode {
	switch c {
	case codes.InvalidArgument:
		return ErrorCodeInvalidArgument
	case codes.Unavailable:
		return ErrorCodeUnavailable
	case codes.DeadlineExceeded:
		return ErrorCodeTimeout
	case codes.Canceled:
		return ErrorCodeCancelled
	case codes.Internal:
		return ErrorCodeInternal
	case codes.FailedPrecondition:
		return ErrorCodeConfigMissing
	case codes.ResourceExhausted:
		return ErrorCodeRateLimited
	default:
		return ErrorCodeUnknown
	}
}

// IsCode checks if err, or anything it wraps, is an AppError with code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrorCodeUnavailable, ErrorCodeTimeout, ErrorCodeRateLimited:
		return true
	default:
		return false
	}
}

// IsConfig reports whether err is a fatal configuration error.
func IsConfig(err error) bool {
	return IsCode(err, ErrorCodeConfigInvalid) || IsCode(err, ErrorCodeConfigMissing)
}
