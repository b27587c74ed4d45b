package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingConfig = errors.New("config is missing")
)

// SilentError is an error wrapper type that silences an
// error and only logs them in the debug log.
//
// It is usually used to prevent spamming the default
// log when Minecraft clients send invalid packets which cannot be read.
type SilentError struct{ error }

func (e *SilentError) Error() string {
	return e.error.Error()
}

func NewSilentErr(format string, a ...any) error {
	return &SilentError{fmt.Errorf(format, a...)}
}

func WrapSilent(wrappedErr error) error {
	return &SilentError{wrappedErr}
}

func (e *SilentError) Unwrap() error { return e.error }

// IsSilent reports whether err wraps a SilentError.
func IsSilent(err error) bool {
	var silent *SilentError
	return errors.As(err, &silent)
}

// see https://github.com/golang/go/issues/4373 for details
func IsConnClosedErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.HasSuffix(s, "use of closed network connection") ||
		strings.HasSuffix(s, "connection reset by peer") ||
		strings.HasSuffix(s, "broken pipe")
}
