package apperror

// AppError is a custom error type that includes an HTTP status code and a stable error kind.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Kind    string // Machine-readable kind (e.g., "interval_conflict")
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError of the same kind and code,
// so a wrapped copy still matches its sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind != "" && e.Kind == t.Kind && e.Code == t.Code && e.Message == t.Message
}

// New creates a new AppError with a status code, kind and message.
func New(code int, kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithCause returns a copy of e carrying err as its underlying cause.
func (e *AppError) WithCause(err error) *AppError {
	return Wrap(err, e.Code, e.Kind, e.Message)
}
