package rfc822

import (
	"errors"
	"fmt"
)

var (
	// ErrBoundaryStraddle is returned when a boundary or line candidate cannot
	// be disambiguated because the scan window cannot grow any further. This
	// signals pathological input or a misconfigured window bound.
	ErrBoundaryStraddle = errors.New("boundary candidate exceeds the scan window")

	// ErrHeaderLineTooLong is returned when a physical header line exceeds the
	// configured maximum length.
	ErrHeaderLineTooLong = errors.New("header line exceeds the configured maximum length")
)

// ParseError is a hard parse failure raised in strict mode. It carries the
// absolute stream offset of the offending bytes together with what was
// expected and what was found there.
type ParseError struct {
	Offset   int64
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[offset=%v] expected %v, found %v", e.Offset, e.Expected, e.Found)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}
