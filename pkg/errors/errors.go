package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")

	// Transfer and reconciliation errors.
	ErrNetwork          = fmt.Errorf("network request failed")
	ErrParse            = fmt.Errorf("malformed manifest")
	ErrIO               = fmt.Errorf("filesystem operation failed")
	ErrResourceBusy     = fmt.Errorf("resource has a transfer in flight")
	ErrResourceNotFound = fmt.Errorf("resource not found")
	ErrNoRemote         = fmt.Errorf("resource has no remote source")
	ErrNetworkDisabled  = fmt.Errorf("network use not accepted")
	ErrInvalidPath      = fmt.Errorf("invalid path")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
