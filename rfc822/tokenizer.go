package rfc822

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ProtonMail/go-mailstream/bytebuf"
)

// HeaderToken is a single header field as read from the wire.
type HeaderToken struct {
	// Key is the field name. Compare case-insensitively.
	Key []byte

	// Value holds the raw value bytes after the colon (and one optional
	// leading space). Folding line terminators are preserved inside the value;
	// the final terminator is excluded. Folded values require whitespace
	// collapse before semantic interpretation.
	Value []byte

	// Raw holds the exact wire bytes of the field, terminators included.
	Raw []byte

	// Offset is the absolute stream offset of the first byte of the field.
	Offset int64

	// Folded reports whether the value spans multiple physical lines.
	Folded bool
}

type tokenizerState int

const (
	tokenizerExpectFieldName tokenizerState = iota
	tokenizerInFieldValue
	tokenizerAtEnd
)

// headerTokenizer consumes a header block from the buffer, up to and including
// the blank line separating it from the body. Bytes after the blank line are
// left for the body and boundary layer.
type headerTokenizer struct {
	buf   *bytebuf.Buffer
	cfg   parseConfig
	state tokenizerState
	diags []Diagnostic
}

func newHeaderTokenizer(buf *bytebuf.Buffer, cfg parseConfig) *headerTokenizer {
	return &headerTokenizer{buf: buf, cfg: cfg}
}

func (t *headerTokenizer) readAll() ([]HeaderToken, error) {
	var tokens []HeaderToken

	for {
		token, ok, err := t.next()
		if err != nil {
			return nil, err
		}

		if !ok {
			return tokens, nil
		}

		tokens = append(tokens, token)
	}
}

// next returns the next header token. The boolean is false once the header
// block has ended, either at the blank separator line or at end of input.
func (t *headerTokenizer) next() (HeaderToken, bool, error) {
	for t.state != tokenizerAtEnd {
		offset := t.buf.AbsolutePosition()

		line, err := t.peekHeaderLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.state = tokenizerAtEnd
				break
			}

			return HeaderToken{}, false, err
		}

		if isBlankLine(line) {
			t.buf.Consume(len(line))
			t.state = tokenizerAtEnd

			break
		}

		if isWSP(line[0]) {
			// A continuation line with no open field to continue.
			if err := t.malformed(offset, line); err != nil {
				return HeaderToken{}, false, err
			}

			t.buf.Consume(len(line))

			continue
		}

		key, ok := fieldName(line)
		if !ok {
			if err := t.malformed(offset, line); err != nil {
				return HeaderToken{}, false, err
			}

			t.buf.Consume(len(line))

			continue
		}

		token, err := t.collectValue(offset, line, key)
		if err != nil {
			return HeaderToken{}, false, err
		}

		return token, true, nil
	}

	return HeaderToken{}, false, nil
}

// collectValue consumes the first line of a field and any folding
// continuations that follow it.
func (t *headerTokenizer) collectValue(offset int64, line, key []byte) (HeaderToken, error) {
	t.state = tokenizerInFieldValue

	token := HeaderToken{
		Key:    append([]byte(nil), key...),
		Raw:    append([]byte(nil), line...),
		Offset: offset,
	}

	valStart := len(key) + 1
	if valStart < len(line) && line[valStart] == ' ' {
		valStart++
	}

	value := append([]byte(nil), line[valStart:]...)

	t.buf.Consume(len(line))

	for {
		next, err := t.peekHeaderLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.state = tokenizerAtEnd
				break
			}

			return HeaderToken{}, err
		}

		if isBlankLine(next) || !isWSP(next[0]) {
			break
		}

		token.Folded = true
		token.Raw = append(token.Raw, next...)
		value = append(value, next...)

		t.buf.Consume(len(next))
	}

	token.Value = trimLineEnding(value)

	if t.state != tokenizerAtEnd {
		t.state = tokenizerExpectFieldName
	}

	return token, nil
}

func (t *headerTokenizer) peekHeaderLine() ([]byte, error) {
	line, err := t.buf.PeekLine()
	if err != nil {
		if errors.Is(err, bytebuf.ErrWindowExceeded) {
			return nil, ErrHeaderLineTooLong
		}

		return nil, err
	}

	if t.cfg.maxHeaderLine > 0 && len(line) > t.cfg.maxHeaderLine {
		return nil, ErrHeaderLineTooLong
	}

	return line, nil
}

func (t *headerTokenizer) malformed(offset int64, line []byte) error {
	found := fmt.Sprintf("%q", snippet(line))

	if t.cfg.strictHeaders {
		return &ParseError{
			Offset:   offset,
			Expected: "header field name followed by ':'",
			Found:    found,
		}
	}

	t.diags = append(t.diags, Diagnostic{
		Kind:    DiagMalformedHeader,
		Offset:  offset,
		Message: "malformed header line: " + found,
	})

	return nil
}

// fieldName returns the field name of a header line, which must consist of
// printable ASCII bytes followed by a colon.
func fieldName(line []byte) ([]byte, bool) {
	idx := bytes.IndexByte(trimLineEnding(line), ':')
	if idx <= 0 {
		return nil, false
	}

	for _, v := range line[:idx] {
		if v < 33 || v > 126 {
			return nil, false
		}
	}

	return line[:idx], true
}

func isBlankLine(line []byte) bool {
	return len(trimLineEnding(line)) == 0
}

func isWSP(b byte) bool {
	return b == ' ' || b == '\t'
}

func trimLineEnding(line []byte) []byte {
	return bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\n")), []byte("\r"))
}

func snippet(line []byte) []byte {
	const max = 64

	line = trimLineEnding(line)

	if len(line) > max {
		return line[:max]
	}

	return line
}
