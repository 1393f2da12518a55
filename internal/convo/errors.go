package convo

// ErrorKind is the closed set of error semantics a tool result, turn, or
// session-level failure can carry (spec.md §7). Propagation differs by
// level: tool-level failures become tool_response error parts and do not
// terminate the turn; turn-level failures emit an error SSE frame and
// terminate the turn; session-level invariant violations quarantine the
// session.
type ErrorKind string

const (
	ErrorBadRequest           ErrorKind = "bad_request"
	ErrorAuth                 ErrorKind = "auth"
	ErrorProviderRequest      ErrorKind = "provider_request"
	ErrorProviderProtocol     ErrorKind = "provider_protocol"
	ErrorToolNotFound         ErrorKind = "tool_not_found"
	ErrorInvalidToolName      ErrorKind = "invalid_tool_name"
	ErrorInvalidToolArguments ErrorKind = "invalid_tool_arguments"
	ErrorDenied               ErrorKind = "denied"
	ErrorCancelled            ErrorKind = "cancelled"
	ErrorTruncated            ErrorKind = "truncated"
	ErrorContextOverflow      ErrorKind = "context_overflow"
	ErrorInternal             ErrorKind = "internal"
)

// Error adapts an ErrorKind to the standard error interface so it can be
// returned from turn-level and session-level operations.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// NewError constructs an *Error for the given kind and message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the ErrorKind carried by err, defaulting to Internal for
// errors that did not originate from this package.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ErrorInternal
}
