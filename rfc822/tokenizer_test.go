package rfc822

import (
	"bytes"
	"io"
	"testing"

	"github.com/ProtonMail/go-mailstream/bytebuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader yields at most chunk bytes per Read call, so that refills land
// at arbitrary points within tokens.
type chunkReader struct {
	data  []byte
	chunk int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}

	n := r.chunk
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}

	copy(p, r.data[:n])
	r.data = r.data[n:]

	return n, nil
}

func tokenize(input string, chunk int, opts ...Option) ([]HeaderToken, []Diagnostic, error) {
	tokenizer := newHeaderTokenizer(bytebuf.New(&chunkReader{data: []byte(input), chunk: chunk}), newParseConfig(opts...))

	tokens, err := tokenizer.readAll()

	return tokens, tokenizer.diags, err
}

func TestTokenizer(t *testing.T) {
	tokens, diags, err := tokenize("Subject: hello\r\nTo: someone@example.com\r\n\r\nbody", 1024)
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Len(t, tokens, 2)

	assert.Equal(t, "Subject", string(tokens[0].Key))
	assert.Equal(t, "hello", string(tokens[0].Value))
	assert.Equal(t, "Subject: hello\r\n", string(tokens[0].Raw))
	assert.Equal(t, int64(0), tokens[0].Offset)
	assert.False(t, tokens[0].Folded)

	assert.Equal(t, "To", string(tokens[1].Key))
	assert.Equal(t, "someone@example.com", string(tokens[1].Value))
	assert.Equal(t, int64(16), tokens[1].Offset)
}

func TestTokenizerFolding(t *testing.T) {
	tokens, diags, err := tokenize("Subject: a long\r\n  folded value\r\n\r\n", 1024)
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Len(t, tokens, 1)

	assert.True(t, tokens[0].Folded)
	assert.Equal(t, "a long\r\n  folded value", string(tokens[0].Value))
	assert.Equal(t, "Subject: a long\r\n  folded value\r\n", string(tokens[0].Raw))
}

func TestTokenizerBufferBoundaryInvariance(t *testing.T) {
	const input = "Subject: a long\r\n  folded value\r\n\tand a second fold\r\nFrom: x@y\r\n\r\nbody"

	want, diags, err := tokenize(input, len(input))
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Len(t, want, 2)

	for chunk := 1; chunk < len(input); chunk++ {
		got, diags, err := tokenize(input, chunk)
		require.NoError(t, err)
		require.Empty(t, diags)
		require.Equal(t, want, got, "tokens differ with refill chunk size %v", chunk)
	}
}

func TestTokenizerEmptyHeaderBlock(t *testing.T) {
	buf := bytebuf.New(bytes.NewReader([]byte("\r\nbody")))

	tokenizer := newHeaderTokenizer(buf, newParseConfig())

	tokens, err := tokenizer.readAll()
	require.NoError(t, err)
	require.Empty(t, tokens)
	require.Empty(t, tokenizer.diags)

	// The blank separator is consumed; the body is not.
	assert.Equal(t, int64(2), buf.AbsolutePosition())
}

func TestTokenizerHeaderEndsAtEndOfInput(t *testing.T) {
	tokens, diags, err := tokenize("Subject: no blank line", 3)
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Len(t, tokens, 1)

	assert.Equal(t, "no blank line", string(tokens[0].Value))
}

func TestTokenizerMalformedLine(t *testing.T) {
	tokens, diags, err := tokenize("this line has no colon\r\nSubject: ok\r\n\r\n", 1024)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Len(t, diags, 1)

	assert.Equal(t, DiagMalformedHeader, diags[0].Kind)
	assert.Equal(t, int64(0), diags[0].Offset)
	assert.Equal(t, "Subject", string(tokens[0].Key))
}

func TestTokenizerContinuationWithoutField(t *testing.T) {
	tokens, diags, err := tokenize("  stray continuation\r\nSubject: ok\r\n\r\n", 1024)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Len(t, diags, 1)

	assert.Equal(t, DiagMalformedHeader, diags[0].Kind)
}

func TestTokenizerFieldNameWithControlBytes(t *testing.T) {
	tokens, diags, err := tokenize("Bad Key: value\r\nSubject: ok\r\n\r\n", 1024)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Len(t, diags, 1)

	assert.Equal(t, DiagMalformedHeader, diags[0].Kind)
}

func TestTokenizerStrictMode(t *testing.T) {
	_, _, err := tokenize("this line has no colon\r\nSubject: ok\r\n\r\n", 1024, WithStrictHeaders())
	require.Error(t, err)
	require.True(t, IsParseError(err))

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int64(0), perr.Offset)
}

func TestTokenizerLineTooLong(t *testing.T) {
	_, _, err := tokenize("Subject: this line is much longer than the configured cap\r\n\r\n", 1024, WithMaxHeaderLineLength(16))
	require.ErrorIs(t, err, ErrHeaderLineTooLong)
}
