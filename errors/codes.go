package errors

// ErrorCode identifies an application error class
type ErrorCode int

const (
	ErrorCode_INTERNAL ErrorCode = iota
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_NOT_FOUND
	ErrorCode_UNAUTHENTICATED
	ErrorCode_PERMISSION_DENIED
	ErrorCode_UNKNOWN_CHANNEL
	ErrorCode_POLICY_EVALUATION
	ErrorCode_INVALID_STATE_TRANSITION
	ErrorCode_ACTION_EXECUTION_FAULT
	ErrorCode_COLLABORATOR_TIMEOUT
)

// ErrorCode_HTTP_OK is the success code carried in response envelopes
const ErrorCode_HTTP_OK ErrorCode = 200

var codeNames = map[ErrorCode]string{
	ErrorCode_INTERNAL:                 "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:         "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                "NOT_FOUND",
	ErrorCode_UNAUTHENTICATED:          "UNAUTHENTICATED",
	ErrorCode_PERMISSION_DENIED:        "PERMISSION_DENIED",
	ErrorCode_UNKNOWN_CHANNEL:          "UNKNOWN_CHANNEL",
	ErrorCode_POLICY_EVALUATION:        "POLICY_EVALUATION",
	ErrorCode_INVALID_STATE_TRANSITION: "INVALID_STATE_TRANSITION",
	ErrorCode_ACTION_EXECUTION_FAULT:   "ACTION_EXECUTION_FAULT",
	ErrorCode_COLLABORATOR_TIMEOUT:     "COLLABORATOR_TIMEOUT",
	ErrorCode_HTTP_OK:                  "OK",
}

// String returns the canonical name of the code
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
