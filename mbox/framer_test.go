package mbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-mailstream/rfc822"
	gombox "github.com/emersion/go-mbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const twoMessageStream = "From alice@example.com\n" +
	"Subject: A\n" +
	"\n" +
	"Body1\n" +
	"From bob@example.com\n" +
	"Subject: B\n" +
	"\n" +
	"Body2\n"

func TestFramer(t *testing.T) {
	framer := NewFramer(bytes.NewReader([]byte(twoMessageStream)))

	msg, err := framer.Next()
	require.NoError(t, err)
	require.Empty(t, msg.Diagnostics)

	assert.Equal(t, "From alice@example.com", string(msg.Sentinel))
	assert.Equal(t, "A", msg.Root.Header.Get("Subject"))
	assert.Equal(t, "Body1\n", string(msg.Root.Body))

	// The span starts at the sentinel line; the parsed tree starts after it.
	assert.Equal(t, rfc822.Span{Start: 0, End: 41}, msg.Span)
	assert.Equal(t, rfc822.Span{Start: 23, End: 41}, msg.Root.Span)

	msg, err = framer.Next()
	require.NoError(t, err)

	assert.Equal(t, "From bob@example.com", string(msg.Sentinel))
	assert.Equal(t, "B", msg.Root.Header.Get("Subject"))
	assert.Equal(t, "Body2\n", string(msg.Root.Body))
	assert.Equal(t, rfc822.Span{Start: 41, End: int64(len(twoMessageStream))}, msg.Span)

	_, err = framer.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestFramerSkipsGarbageBeforeFirstSentinel(t *testing.T) {
	framer := NewFramer(bytes.NewReader([]byte("junk line\nmore junk\n" + twoMessageStream)))

	msg, err := framer.Next()
	require.NoError(t, err)

	assert.Equal(t, "A", msg.Root.Header.Get("Subject"))
	assert.Equal(t, int64(20), msg.Span.Start)
}

func TestFramerEmptyInput(t *testing.T) {
	framer := NewFramer(bytes.NewReader(nil))

	_, err := framer.Next()
	require.ErrorIs(t, err, io.EOF)
}

// declaredStream builds a first message declaring the given length, followed by
// a second message, so tests can watch the declared cut being taken or refused.
func declaredStream(declared int) string {
	return "From a@example.com\n" +
		fmt.Sprintf("Content-Length: %d\n", declared) +
		"Subject: A\n" +
		"\n" +
		"B1\nB2\n" +
		"From b@example.com\n" +
		"Subject: B\n" +
		"\n" +
		"Body2\n"
}

func TestFramerDeclaredLengthCorrect(t *testing.T) {
	// The first message body is 37 bytes counted from just after the sentinel
	// line, which is exactly what the header declares.
	framer := NewFramer(bytes.NewReader([]byte(declaredStream(37))))

	msg, err := framer.Next()
	require.NoError(t, err)
	require.Empty(t, msg.Diagnostics)

	assert.Equal(t, "A", msg.Root.Header.Get("Subject"))
	assert.Equal(t, "B1\nB2\n", string(msg.Root.Body))

	msg, err = framer.Next()
	require.NoError(t, err)
	require.Empty(t, msg.Diagnostics)

	assert.Equal(t, "B", msg.Root.Header.Get("Subject"))
	assert.Equal(t, "Body2\n", string(msg.Root.Body))
}

func TestFramerDeclaredLengthAtEndOfInput(t *testing.T) {
	stream := "From a@example.com\n" +
		"Content-Length: 37\n" +
		"Subject: A\n" +
		"\n" +
		"B1\nB2\n"

	framer := NewFramer(bytes.NewReader([]byte(stream)))

	msg, err := framer.Next()
	require.NoError(t, err)
	require.Empty(t, msg.Diagnostics)

	assert.Equal(t, "B1\nB2\n", string(msg.Root.Body))

	_, err = framer.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestFramerDeclaredLengthRejected(t *testing.T) {
	tests := []struct {
		name     string
		declared int
	}{
		{name: "zero", declared: 0},
		{name: "shorter than the header block", declared: 5},
		{name: "line start but not a sentinel", declared: 34},
		{name: "mid-line", declared: 36},
		{name: "overshooting the next sentinel", declared: 50},
		{name: "overshooting the stream", declared: 500},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			framer := NewFramer(bytes.NewReader([]byte(declaredStream(test.declared))))

			// The lying hint is refused and the literal scan still cuts both
			// messages correctly.
			msg, err := framer.Next()
			require.NoError(t, err)

			require.Len(t, msg.Diagnostics, 1)
			assert.Equal(t, rfc822.DiagLengthHintMismatch, msg.Diagnostics[0].Kind)
			assert.Equal(t, "B1\nB2\n", string(msg.Root.Body))

			msg, err = framer.Next()
			require.NoError(t, err)
			require.Empty(t, msg.Diagnostics)
			assert.Equal(t, "B", msg.Root.Header.Get("Subject"))

			_, err = framer.Next()
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestFramerWithoutLengthHint(t *testing.T) {
	// With the hint disabled a lying declared length is never consulted, so no
	// mismatch is diagnosed either.
	framer := NewFramer(bytes.NewReader([]byte(declaredStream(50))), WithoutLengthHint())

	msg, err := framer.Next()
	require.NoError(t, err)
	require.Empty(t, msg.Diagnostics)

	assert.Equal(t, "B1\nB2\n", string(msg.Root.Body))
}

func TestFramerParseOptions(t *testing.T) {
	stream := "From a@example.com\n" +
		"this line has no colon\n" +
		"\n" +
		"body\n"

	framer := NewFramer(bytes.NewReader([]byte(stream)), WithParseOptions(rfc822.WithStrictHeaders()))

	_, err := framer.Next()
	require.Error(t, err)
	require.True(t, rfc822.IsParseError(err))
}

func TestFramerMultipartMessages(t *testing.T) {
	stream := "From a@example.com\n" +
		"Content-Type: multipart/mixed; boundary=XYZ\n" +
		"\n" +
		"--XYZ\n" +
		"X-Part: 1\n" +
		"\n" +
		"Part1\n" +
		"--XYZ--\n" +
		"From b@example.com\n" +
		"Subject: B\n" +
		"\n" +
		"Body2\n"

	framer := NewFramer(bytes.NewReader([]byte(stream)))

	msg, err := framer.Next()
	require.NoError(t, err)

	require.True(t, msg.Root.IsMultipart())
	require.Len(t, msg.Root.Children, 1)
	assert.Equal(t, "Part1\n", string(msg.Root.Part(1).Body))
	assert.Empty(t, msg.Root.AllDiagnostics())

	msg, err = framer.Next()
	require.NoError(t, err)
	assert.Equal(t, "B", msg.Root.Header.Get("Subject"))
}

func TestFramerMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	framer := NewFramer(bytes.NewReader([]byte(twoMessageStream)))

	var subjects []string

	for msg := range framer.Messages(context.Background()) {
		subjects = append(subjects, msg.Root.Header.Get("Subject"))
	}

	assert.Equal(t, []string{"A", "B"}, subjects)
}

func TestFramerMessagesCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())

	framer := NewFramer(bytes.NewReader([]byte(twoMessageStream)))

	ch := framer.Messages(ctx)

	msg, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, "A", msg.Root.Header.Get("Subject"))

	cancel()

	for range ch {
		// Drain whatever was already in flight; the channel must close.
	}
}

func TestFramerMatchesReferenceReader(t *testing.T) {
	var fixture bytes.Buffer

	var want []string

	for i := 0; i < 10; i++ {
		subject := uuid.NewString()
		want = append(want, subject)

		fmt.Fprintf(&fixture, "From %v@example.com Thu Jan  1 00:00:00 1970\n", uuid.NewString())
		fmt.Fprintf(&fixture, "Subject: %v\n\nbody %d\n", subject, i)
	}

	path := filepath.Join(t.TempDir(), uuid.NewString()+".mbox")
	require.NoError(t, os.WriteFile(path, fixture.Bytes(), 0o600))

	var got []string

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	framer := NewFramer(f)

	for {
		msg, err := framer.Next()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}

		got = append(got, msg.Root.Header.Get("Subject"))
	}

	require.Equal(t, want, got)

	// The cut points must agree with an independent mbox reader.
	var ref []string

	mr := gombox.NewReader(bytes.NewReader(fixture.Bytes()))

	for {
		r, err := mr.NextMessage()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}

		literal, err := io.ReadAll(r)
		require.NoError(t, err)

		header, _, err := rfc822.ParseHeader(literal)
		require.NoError(t, err)

		ref = append(ref, header.Get("Subject"))
	}

	require.Equal(t, want, ref)
}
