// Package rfc5322 holds address values consumed by certificate lookup.
package rfc5322

import (
	"errors"
	"fmt"
)

// ErrInvalidFingerprint is returned when constructing a secure address with a
// fingerprint that is not a non-empty hexadecimal string.
var ErrInvalidFingerprint = errors.New("fingerprint must be a non-empty hexadecimal string")

// SecureAddress is a mailbox address carrying a certificate fingerprint as an
// alternative lookup key. It is immutable: the fingerprint is validated
// exactly once, at construction, and no field changes afterwards. The parser
// never produces or mutates these; they are consumed by downstream
// certificate resolution.
type SecureAddress struct {
	name        string
	route       string
	address     string
	fingerprint string
}

// NewSecureAddress constructs a secure address. The fingerprint must be a
// non-empty string of hexadecimal digits, either case; it is kept verbatim.
func NewSecureAddress(name, route, address, fingerprint string) (SecureAddress, error) {
	if len(fingerprint) == 0 {
		return SecureAddress{}, ErrInvalidFingerprint
	}

	for i := 0; i < len(fingerprint); i++ {
		if !isHexDigit(fingerprint[i]) {
			return SecureAddress{}, fmt.Errorf("%w: invalid character %q at index %v", ErrInvalidFingerprint, fingerprint[i], i)
		}
	}

	return SecureAddress{
		name:        name,
		route:       route,
		address:     address,
		fingerprint: fingerprint,
	}, nil
}

// Name returns the display name.
func (a SecureAddress) Name() string {
	return a.name
}

// Route returns the route.
func (a SecureAddress) Route() string {
	return a.route
}

// Address returns the mailbox address.
func (a SecureAddress) Address() string {
	return a.address
}

// Fingerprint returns the hex fingerprint exactly as constructed.
func (a SecureAddress) Fingerprint() string {
	return a.fingerprint
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
