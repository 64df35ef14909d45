package errors

// Predefined sentinel errors for errors.Is comparisons. These carry no call
// context; use Wrap/Wrapf when surfacing them with details.
var (
	// Configuration
	ErrConfigError     = New(CodeConfigError, "invalid configuration")
	ErrInvalidValue    = New(CodeInvalidValue, "invalid value")
	ErrNotRegistered   = New(CodeNotRegistered, "metric is not registered")
	ErrDuplicateMetric = New(CodeDuplicateMetric, "metric already registered")

	// Encoding
	ErrFormatError = New(CodeFormatError, "malformed key")

	// Transport
	ErrTransportError = New(CodeTransportError, "store unreachable")

	// Lifecycle
	ErrRegistryClosed = New(CodeRegistryClosed, "registry is closed")
)
