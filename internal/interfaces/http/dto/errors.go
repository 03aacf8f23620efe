package dto

import "net/http"

// Envelope error codes. Codes raised by the application layer keep their
// own names, see the Code* block.
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeUnavailable     = "ERR_UNAVAILABLE"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists   = "ERR_ALREADY_EXISTS"
	ErrCodeConflict        = "ERR_CONFLICT"
	ErrCodeInvalidState    = "ERR_INVALID_STATE"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// Import, statistics and logistics codes sent to clients unchanged.
const (
	CodeTaskExists         = "TASK_EXISTS"
	CodeMissingFile        = "MISSING_FILE"
	CodeUnsupportedFile    = "UNSUPPORTED_FILE"
	CodeInvalidJobType     = "INVALID_JOB_TYPE"
	CodeInvalidScope       = "INVALID_SCOPE"
	CodeInvalidTimeRange   = "INVALID_TIME_RANGE"
	CodeInvalidTaskID      = "INVALID_TASK_ID"
	CodeInvalidLimit       = "INVALID_LIMIT"
	CodeInvalidReturnRate  = "INVALID_RETURN_RATE"
	CodeKD100NotConfigured = "KD100_NOT_CONFIGURED"
)

var httpStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeAlreadyExists:   http.StatusConflict,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeInvalidState:    http.StatusUnprocessableEntity,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	CodeTaskExists:         http.StatusConflict,
	CodeMissingFile:        http.StatusBadRequest,
	CodeUnsupportedFile:    http.StatusBadRequest,
	CodeInvalidJobType:     http.StatusBadRequest,
	CodeInvalidScope:       http.StatusBadRequest,
	CodeInvalidTimeRange:   http.StatusBadRequest,
	CodeInvalidTaskID:      http.StatusBadRequest,
	CodeInvalidLimit:       http.StatusBadRequest,
	CodeInvalidReturnRate:  http.StatusBadRequest,
	CodeKD100NotConfigured: http.StatusBadRequest,
}

// GetHTTPStatus maps a code to its status. Unknown codes are 500.
func GetHTTPStatus(code string) int {
	if s, ok := httpStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// domainCodes renames the shared.DomainError sentinel codes.
var domainCodes = map[string]string{
	"NOT_FOUND":        ErrCodeNotFound,
	"ALREADY_EXISTS":   ErrCodeAlreadyExists,
	"INVALID_INPUT":    ErrCodeInvalidInput,
	"INVALID_STATE":    ErrCodeInvalidState,
	"CONFLICT":         ErrCodeConflict,
	"UNAVAILABLE":      ErrCodeUnavailable,
	"VALIDATION_ERROR": ErrCodeValidation,
	"BAD_REQUEST":      ErrCodeBadRequest,
	"INTERNAL_ERROR":   ErrCodeInternal,
}

// NormalizeErrorCode returns the envelope code for a domain code. Other
// codes pass through.
func NormalizeErrorCode(code string) string {
	if c, ok := domainCodes[code]; ok {
		return c
	}
	return code
}
