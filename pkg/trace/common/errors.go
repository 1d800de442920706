package common

func (e *TraceError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// TraceError represents recording file and validation errors
type TraceError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *TraceError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeRead           = "READ_FAILED"
	ErrCodeWrite          = "WRITE_FAILED"
	ErrCodeParse          = "PARSE_FAILED"
	ErrCodeColumnNotFound = "COLUMN_NOT_FOUND"
	ErrCodeMalformedInput = "MALFORMED_INPUT"
	ErrCodeNoData         = "NO_DATA"
)

// NewTraceError creates a new trace error
func NewTraceError(path, code, message string, cause error) *TraceError {
	return &TraceError{
		Path:    path,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
