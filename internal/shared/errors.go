package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthenticationRequired = fmt.Errorf("authentication required")
	ErrAuthFailed             = fmt.Errorf("authentication failed")
	ErrRefreshFailed          = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken         = fmt.Errorf("no refresh token available")
	ErrAuthorizationDenied    = fmt.Errorf("authorization denied")
	ErrStateMismatch          = fmt.Errorf("oauth state mismatch")
	ErrInsufficientScope      = fmt.Errorf("insufficient oauth scope")
	ErrTimeout                = fmt.Errorf("operation timed out")

	// Picker and import errors
	ErrSessionCreateFailed = fmt.Errorf("picker session creation failed")
	ErrPollFailed          = fmt.Errorf("picker session poll failed")
	ErrResolveFailed       = fmt.Errorf("picked items resolution failed")
	ErrNotReadyYet         = fmt.Errorf("picker selection not finished")
	ErrImportItemFailed    = fmt.Errorf("media item import failed")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")
	ErrNotFound            = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
