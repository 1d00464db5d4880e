package rfc822

import (
	"bytes"
	"strings"

	"github.com/bradenaw/juniper/xslices"
)

// Header is the ordered set of fields of a single header block. It preserves
// the raw wire bytes of every field so that Raw reproduces the block exactly.
type Header struct {
	tokens []HeaderToken
}

func newHeader(tokens []HeaderToken) *Header {
	return &Header{tokens: tokens}
}

// Tokens returns a copy of the header fields in wire order.
func (h *Header) Tokens() []HeaderToken {
	return xslices.Clone(h.tokens)
}

// Raw returns the exact wire bytes of the header block, excluding the blank
// separator line.
func (h *Header) Raw() []byte {
	var res []byte

	for _, token := range h.tokens {
		res = append(res, token.Raw...)
	}

	return res
}

// Has reports whether a field with the given name is present. Names compare
// case-insensitively.
func (h *Header) Has(key string) bool {
	for _, token := range h.tokens {
		if strings.EqualFold(string(token.Key), key) {
			return true
		}
	}

	return false
}

// Get returns the value of the first field with the given name, with folding
// collapsed to single spaces. It returns the empty string if absent.
func (h *Header) Get(key string) string {
	return mergeMultiline(h.GetRaw(key))
}

// GetRaw returns the raw value bytes of the first field with the given name,
// folding terminators included.
func (h *Header) GetRaw(key string) []byte {
	for _, token := range h.tokens {
		if strings.EqualFold(string(token.Key), key) {
			return token.Value
		}
	}

	return nil
}

// Entries calls fn for each field in wire order, with folding collapsed in the
// value.
func (h *Header) Entries(fn func(key, val string)) {
	for _, token := range h.tokens {
		fn(string(token.Key), mergeMultiline(token.Value))
	}
}

// mergeMultiline collapses a folded value into a single line by trimming each
// physical line and joining with single spaces.
func mergeMultiline(value []byte) string {
	if !bytes.ContainsAny(value, "\r\n") {
		return string(bytes.TrimSpace(value))
	}

	var res [][]byte

	for _, line := range bytes.Split(value, []byte("\n")) {
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			res = append(res, trimmed)
		}
	}

	return string(bytes.Join(res, []byte(" ")))
}
