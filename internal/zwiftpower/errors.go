package zwiftpower

import "fmt"

// ConfigurationError is returned by NewScraper when a required credential is missing.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("zwiftpower: %s must not be empty", e.Field)
}

// AuthenticationError is returned when the login sequence could not establish a session.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("zwiftpower: login failed: %s", e.Reason)
	}
	return fmt.Sprintf("zwiftpower: login failed: %s: %s", e.Reason, e.Err.Error())
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// HttpError is returned when zwiftpower answers with a non-2xx status.
type HttpError struct {
	Response *Response
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("zwiftpower: GET %s: status %d", e.Response.URL, e.Response.StatusCode)
}
