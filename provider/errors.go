package provider

import "fmt"

// The error kinds below partition every failure the layer can produce.
// Callers distinguish them with errors.As.
//
//   - ConfigError: caller misuse (unknown provider, missing credential,
//     invalid generation parameter, unknown prompt category).
//   - ValidationError: bad per-item input (undecodable payload, missing
//     required custom instructions).
//   - TranslationError: a request or response that cannot be represented
//     in one backend's schema.
//   - BackendError: the backend itself failed (transport error, rate
//     limit, invalid model, any non-2xx status).

// ConfigError indicates caller misconfiguration. It is never retried and
// never downgraded to a partial result.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError indicates malformed caller input scoped to one item.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TranslationError indicates a request or response that cannot be
// expressed in the named provider's schema. Scoped to a single request.
type TranslationError struct {
	Provider string
	Msg      string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("%s: cannot translate: %s", e.Provider, e.Msg)
}

// BackendError is a failure reported by (or on the way to) the backend.
// StatusCode is zero for transport-level failures.
type BackendError struct {
	Provider   string
	StatusCode int
	Message    string
	Type       string
	Code       string
	Err        error
}

func (e *BackendError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	case e.Type != "":
		return fmt.Sprintf("%s API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	default:
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
