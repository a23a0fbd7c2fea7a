package errors

// ErrorCategory is the broad class of an error. It selects the default
// severity, retry strategy and CLI exit code.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryTemplate   ErrorCategory = "template"
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryNetwork    ErrorCategory = "network"
	CategoryStorage    ErrorCategory = "storage"
	CategoryRuntime    ErrorCategory = "runtime"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Aborts the pass or command
	SeverityError   ErrorSeverity = "error"   // Fails the current file
	SeverityWarning ErrorSeverity = "warning" // Output is produced in degraded form
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy indicates whether repeating the operation can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

type traits struct {
	severity ErrorSeverity
	retry    RetryStrategy
	exitCode int
}

var categoryTraits = map[ErrorCategory]traits{
	CategoryValidation: {SeverityFatal, RetryNever, 2},
	CategoryNotFound:   {SeverityWarning, RetryNever, 4},
	CategoryConfig:     {SeverityFatal, RetryUserAction, 7},
	CategoryNetwork:    {SeverityError, RetryBackoff, 8},
	CategoryStorage:    {SeverityError, RetryNever, 8},
	CategoryInternal:   {SeverityFatal, RetryNever, 10},
	CategoryTemplate:   {SeverityError, RetryNever, 11},
	CategoryBuild:      {SeverityFatal, RetryNever, 11},
	CategoryFileSystem: {SeverityFatal, RetryNever, 11},
	CategoryRuntime:    {SeverityFatal, RetryNever, 12},
}

func (c ErrorCategory) traits() traits {
	if t, ok := categoryTraits[c]; ok {
		return t
	}
	return traits{SeverityError, RetryNever, 1}
}

// ExitCode is the process exit status a one-shot command uses for c.
func (c ErrorCategory) ExitCode() int { return c.traits().exitCode }

// ErrorContext carries structured key/value details such as the file path.
type ErrorContext map[string]any

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// with returns a copy of c extended by key.
func (c ErrorContext) with(key string, value any) ErrorContext {
	out := make(ErrorContext, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[key] = value
	return out
}
