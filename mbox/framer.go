// Package mbox frames a concatenated mailbox stream into discrete messages.
//
// Messages are cut on "From " sentinel lines. When a message declares its own
// length, the declared value is used as a seek hint for where the next
// sentinel should be sought first, but never as ground truth: the hinted cut
// must check out against an actual sentinel line or end of input, and the
// framer falls back to a literal scan whenever it does not.
package mbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ProtonMail/go-mailstream/bytebuf"
	"github.com/ProtonMail/go-mailstream/logging"
	"github.com/ProtonMail/go-mailstream/rfc822"
)

// LengthHeader is the header whose value, when present, declares the byte
// length of the message counted from the first byte after the sentinel line.
const LengthHeader = "Content-Length"

var sentinelPrefix = []byte("From ")

// FramedMessage is one message cut out of a mailbox stream.
type FramedMessage struct {
	// Root is the parsed tree of the message.
	Root *rfc822.Node

	// Span is the absolute byte range of the message in the source stream,
	// starting at the sentinel line.
	Span rfc822.Span

	// Sentinel is the sentinel line that introduced the message, without its
	// line terminator.
	Sentinel []byte

	// Diagnostics holds framing-level conditions, such as a rejected declared
	// length. Conditions within the message are attached to its nodes.
	Diagnostics []rfc822.Diagnostic
}

// Framer cuts a mailbox stream into messages, producing them one at a time in
// strictly increasing offset order. It is not safe for concurrent use.
type Framer struct {
	buf     *bytebuf.Buffer
	scanner *rfc822.BoundaryScanner
	cfg     framerConfig
}

// NewFramer returns a framer reading from r.
func NewFramer(r io.Reader, opts ...Option) *Framer {
	cfg := newFramerConfig(opts...)

	buf := bytebuf.New(r)

	scanner := rfc822.NewBoundaryScanner(buf)
	scanner.EnableSentinels(true)

	return &Framer{buf: buf, scanner: scanner, cfg: cfg}
}

// Next returns the next message, or io.EOF once the source is exhausted. A
// caller may discard each message before requesting the next one.
func (f *Framer) Next() (*FramedMessage, error) {
	sentinel, start, err := f.awaitSentinel()
	if err != nil {
		return nil, err
	}

	msgStart := f.buf.AbsolutePosition()

	literal, diags, err := f.collectMessage(msgStart)
	if err != nil {
		return nil, err
	}

	root, err := rfc822.ParseAt(bytes.NewReader(literal), msgStart, f.cfg.parseOpts...)
	if err != nil {
		return nil, err
	}

	return &FramedMessage{
		Root:        root,
		Span:        rfc822.Span{Start: start, End: msgStart + int64(len(literal))},
		Sentinel:    sentinel,
		Diagnostics: diags,
	}, nil
}

// Messages returns a channel producing messages until the source is exhausted,
// the context is cancelled, or an error occurs. Errors other than io.EOF are
// logged; the core Next remains available for callers that need them.
func (f *Framer) Messages(ctx context.Context) <-chan *FramedMessage {
	ch := make(chan *FramedMessage)

	logging.GoAnnotate(ctx, func(ctx context.Context) {
		defer close(ch)

		for {
			msg, err := f.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					f.cfg.log.WithError(err).Error("Failed to frame next message")
				}

				return
			}

			select {
			case ch <- msg:

			case <-ctx.Done():
				return
			}
		}
	}, logging.Labels{"role": "mbox-framer"})

	return ch
}

// awaitSentinel scans forward to the next sentinel line, skipping any bytes
// before it, and consumes it.
func (f *Framer) awaitSentinel() ([]byte, int64, error) {
	for {
		line, match, err := f.scanner.Next()
		if err != nil {
			return nil, 0, err
		}

		if match != nil && match.Kind == rfc822.MboxSentinel {
			return bytes.TrimRight(line, "\r\n"), match.Offset, nil
		}
	}
}

// collectMessage accumulates the message literal, header block first so that a
// declared length can be consulted for the remainder.
func (f *Framer) collectMessage(msgStart int64) ([]byte, []rfc822.Diagnostic, error) {
	literal, done, err := f.collectHeaderBlock()
	if err != nil {
		return nil, nil, err
	}

	var diags []rfc822.Diagnostic

	if !done {
		if declared, ok := f.declaredLength(literal); ok {
			matched, err := f.takeDeclaredExtent(msgStart, declared, &literal)
			if err != nil {
				return nil, nil, err
			}

			if matched {
				return literal, diags, nil
			}

			diags = append(diags, rfc822.Diagnostic{
				Kind:    rfc822.DiagLengthHintMismatch,
				Offset:  f.buf.AbsolutePosition(),
				Message: fmt.Sprintf("declared length %v does not end at a message boundary", declared),
			})

			f.cfg.log.WithField("declared", declared).Debug("Declared length rejected, scanning for next sentinel")
		}

		if err := f.collectUntilSentinel(&literal); err != nil {
			return nil, nil, err
		}
	}

	return literal, diags, nil
}

// collectHeaderBlock consumes lines up to and including the blank separator
// line. It stops early, reporting done, if the message ends first: at end of
// input, or at a sentinel line which is left unconsumed.
func (f *Framer) collectHeaderBlock() ([]byte, bool, error) {
	var literal []byte

	for {
		view, err := f.peekLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return literal, true, nil
			}

			return nil, false, err
		}

		if bytes.HasPrefix(view, sentinelPrefix) {
			return literal, true, nil
		}

		blank := len(bytes.TrimRight(view, "\r\n")) == 0

		literal = append(literal, view...)
		f.buf.Consume(len(view))

		if blank {
			return literal, false, nil
		}
	}
}

// declaredLength extracts the declared length from an already-collected header
// block. Absent, malformed or negative values mean no usable hint.
func (f *Framer) declaredLength(headerBlock []byte) (int64, bool) {
	if !f.cfg.respectLength {
		return 0, false
	}

	header, _, err := rfc822.ParseHeader(headerBlock)
	if err != nil {
		return 0, false
	}

	val := header.Get(LengthHeader)
	if val == "" {
		return 0, false
	}

	declared, err := strconv.ParseInt(val, 10, 64)
	if err != nil || declared < 0 {
		return 0, false
	}

	return declared, true
}

// takeDeclaredExtent attempts to cut the message at msgStart+declared, in
// absolute stream coordinates. The cut is accepted only if it falls on a line
// start that is followed by end of input or a sentinel line; nothing is
// consumed on rejection, so the caller can fall back to a literal scan.
func (f *Framer) takeDeclaredExtent(msgStart, declared int64, literal *[]byte) (bool, error) {
	need := msgStart + declared - f.buf.AbsolutePosition()

	// The header block alone already passed the declared end.
	if need < 0 {
		return false, nil
	}

	if need+int64(len(sentinelPrefix)) > int64(f.buf.MaxWindow()) {
		return false, nil
	}

	avail, err := f.buf.EnsureAvailable(int(need) + len(sentinelPrefix))
	if err != nil {
		if errors.Is(err, bytebuf.ErrWindowExceeded) {
			return false, nil
		}

		return false, err
	}

	// EnsureAvailable only comes up short once the source is exhausted, so a
	// count below the declared extent means the declared value overshoots the
	// stream itself.
	if int64(avail) < need {
		return false, nil
	}

	view := f.buf.Unread()

	// The cut must land just after a line terminator to be a line start.
	if need > 0 && view[need-1] != '\n' {
		return false, nil
	}

	rest := view[need:avail]

	if len(rest) > 0 && !bytes.HasPrefix(rest, sentinelPrefix) {
		return false, nil
	}

	*literal = append(*literal, view[:need]...)
	f.buf.Consume(int(need))

	return true, nil
}

// collectUntilSentinel consumes lines into the literal until the next sentinel
// line or end of input. The sentinel itself is left unconsumed.
func (f *Framer) collectUntilSentinel(literal *[]byte) error {
	for {
		view, err := f.peekLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if bytes.HasPrefix(view, sentinelPrefix) {
			return nil
		}

		*literal = append(*literal, view...)
		f.buf.Consume(len(view))
	}
}

func (f *Framer) peekLine() ([]byte, error) {
	line, err := f.buf.PeekLine()
	if err != nil {
		if errors.Is(err, bytebuf.ErrWindowExceeded) {
			return nil, rfc822.ErrBoundaryStraddle
		}

		return nil, err
	}

	return line, nil
}
