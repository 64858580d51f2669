package domain

import (
	"errors"
	"fmt"
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrJobExists          = errors.New("job already exists")
	ErrMissingCredentials = errors.New("missing speech credentials")
	ErrNoNarration        = errors.New("no slide contains speaker notes")
	ErrHostUnavailable    = errors.New("slide export host unavailable on this platform")
)

// ConfigError reports a missing or unusable configuration value detected
// before any external call is attempted.
type ConfigError struct {
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Detail, e.Err)
	}
	return "configuration: " + e.Detail
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ValidationError reports input that can never produce a valid video, such as
// a deck with no narration text.
type ValidationError struct {
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %v", e.Detail, e.Err)
	}
	return "validation: " + e.Detail
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExternalToolError reports a failure of one of the external engines: the
// export host never reached success, or a media tool process exited non-zero.
type ExternalToolError struct {
	Tool   string
	Detail string
	Err    error
}

func (e *ExternalToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Tool, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Detail)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// ContentionError reports a file that stayed locked past the bounded retry
// budget for the named operation.
type ContentionError struct {
	Op   string
	Path string
	Err  error
}

func (e *ContentionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: file still locked after retries: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: file still locked after retries", e.Op, e.Path)
}

func (e *ContentionError) Unwrap() error { return e.Err }
