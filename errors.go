// Package mailstream parses raw, untrusted byte streams into structured mail
// message trees and frames concatenated mailbox archives into messages.
//
// The heavy lifting lives in the subpackages: bytebuf owns the refillable
// byte window, rfc822 tokenizes headers, scans multipart boundaries and
// builds message trees, and mbox cuts mailbox streams into framed messages.
package mailstream

import (
	"errors"

	"github.com/ProtonMail/go-mailstream/rfc822"
	"github.com/ProtonMail/go-mailstream/rfc5322"
)

// IsBoundaryStraddle returns true if the error is rfc822.ErrBoundaryStraddle.
func IsBoundaryStraddle(err error) bool {
	return errors.Is(err, rfc822.ErrBoundaryStraddle)
}

// IsHeaderLineTooLong returns true if the error is rfc822.ErrHeaderLineTooLong.
func IsHeaderLineTooLong(err error) bool {
	return errors.Is(err, rfc822.ErrHeaderLineTooLong)
}

// IsParseError returns true if the error is or wraps an rfc822.ParseError.
func IsParseError(err error) bool {
	return rfc822.IsParseError(err)
}

// IsInvalidFingerprint returns true if the error is rfc5322.ErrInvalidFingerprint.
func IsInvalidFingerprint(err error) bool {
	return errors.Is(err, rfc5322.ErrInvalidFingerprint)
}
