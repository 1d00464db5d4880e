// Package bytebuf implements a growable byte window over an input stream.
//
// The window tracks the absolute stream offset of its first byte so that
// consumers can always relate their cursor to a position in the original
// stream, independently of how often the window was refilled or compacted.
package bytebuf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultChunkSize is the number of bytes requested from the source per refill.
	DefaultChunkSize = 4096

	// DefaultMaxWindow is the default cap on the window size. Growing past the
	// cap fails with ErrWindowExceeded rather than consuming unbounded memory.
	DefaultMaxWindow = 1 << 20
)

// ErrWindowExceeded is returned when satisfying a request would require the
// window to grow beyond its configured maximum.
var ErrWindowExceeded = errors.New("bytebuf: window size limit exceeded")

// Buffer is a byte window over a stream. It is not safe for concurrent use.
type Buffer struct {
	src io.Reader

	buf   []byte
	base  int64 // absolute stream offset of buf[0]
	pos   int   // read cursor within buf
	limit int   // number of valid bytes in buf

	chunkSize int
	maxWindow int

	eof bool
}

// New returns a buffer reading from src, positioned at stream offset 0.
func New(src io.Reader) *Buffer {
	return NewAt(src, 0)
}

// NewAt returns a buffer reading from src, treating the first byte of src as
// being at the given absolute stream offset.
func NewAt(src io.Reader, base int64) *Buffer {
	return &Buffer{
		src:       src,
		base:      base,
		chunkSize: DefaultChunkSize,
		maxWindow: DefaultMaxWindow,
	}
}

// SetMaxWindow changes the window size cap. It must be called before reading.
func (b *Buffer) SetMaxWindow(n int) {
	if n > 0 {
		b.maxWindow = n
	}
}

// MaxWindow returns the window size cap.
func (b *Buffer) MaxWindow() int {
	return b.maxWindow
}

// AbsolutePosition returns the absolute stream offset of the next unread byte.
// This is the only value that may be compared against caller-declared length
// bounds; positions within the backing window are never meaningful on their own.
func (b *Buffer) AbsolutePosition() int64 {
	return b.base + int64(b.pos)
}

// Available returns the number of unread bytes currently resident.
func (b *Buffer) Available() int {
	return b.limit - b.pos
}

// EOF reports whether the source is exhausted and all resident bytes consumed.
func (b *Buffer) EOF() bool {
	return b.eof && b.pos == b.limit
}

// EnsureAvailable refills from the source until at least n unread bytes are
// resident or the source is exhausted. It returns the number of unread bytes
// actually available, which may be less than n at end of input; a short count
// is not an error. A failed read from the source is surfaced as-is and is not
// retried.
func (b *Buffer) EnsureAvailable(n int) (int, error) {
	if n > b.maxWindow {
		return b.Available(), ErrWindowExceeded
	}

	for b.Available() < n && !b.eof {
		if err := b.refill(); err != nil {
			return b.Available(), err
		}
	}

	return b.Available(), nil
}

// Peek returns the unread byte at the given offset from the cursor without
// consuming it. The second return value is false if the byte is not resident.
func (b *Buffer) Peek(offset int) (byte, bool) {
	if b.pos+offset >= b.limit {
		return 0, false
	}

	return b.buf[b.pos+offset], true
}

// Unread returns a view of the resident unread bytes. The view is invalidated
// by any subsequent EnsureAvailable, PeekLine or Consume call.
func (b *Buffer) Unread() []byte {
	return b.buf[b.pos:b.limit]
}

// Consume advances the cursor by n bytes. Consuming more than is resident is a
// contract violation by the caller.
func (b *Buffer) Consume(n int) {
	if n > b.Available() {
		panic(fmt.Sprintf("bytebuf: consume %v bytes with only %v available", n, b.Available()))
	}

	b.pos += n
}

// PeekLine returns a view of the next physical line, including its terminator,
// refilling from the source as needed so that a line is never reported in
// truncated form while more input remains. At end of input, the unterminated
// remainder is returned as the final line; once nothing remains, io.EOF is
// returned. The view is invalidated like Unread.
func (b *Buffer) PeekLine() ([]byte, error) {
	searched := 0

	for {
		if idx := indexByteFrom(b.Unread(), searched, '\n'); idx >= 0 {
			return b.buf[b.pos : b.pos+idx+1], nil
		}

		if b.eof {
			if b.Available() == 0 {
				return nil, io.EOF
			}

			return b.Unread(), nil
		}

		searched = b.Available()

		if _, err := b.EnsureAvailable(searched + 1); err != nil {
			return nil, err
		}
	}
}

// refill compacts the window if needed, grows it if needed, and performs a
// single read from the source.
func (b *Buffer) refill() error {
	if b.limit == len(b.buf) && b.pos > 0 {
		b.compact()
	}

	if b.limit == len(b.buf) {
		if err := b.grow(); err != nil {
			return err
		}
	}

	n, err := b.src.Read(b.buf[b.limit:])

	b.limit += n

	if err != nil {
		if errors.Is(err, io.EOF) {
			b.eof = true
			return nil
		}

		return err
	}

	return nil
}

// compact discards the consumed prefix. The base offset is folded forward in
// the same step as the memory move so that no caller can observe a window
// whose absolute position does not match its contents.
func (b *Buffer) compact() {
	copy(b.buf, b.buf[b.pos:b.limit])

	b.base += int64(b.pos)
	b.limit -= b.pos
	b.pos = 0
}

func (b *Buffer) grow() error {
	size := len(b.buf) * 2

	if size == 0 {
		size = b.chunkSize
	}

	if size > b.maxWindow {
		size = b.maxWindow
	}

	if size <= len(b.buf) {
		return ErrWindowExceeded
	}

	buf := make([]byte, size)

	copy(buf, b.buf[:b.limit])

	b.buf = buf

	return nil
}

func indexByteFrom(data []byte, from int, c byte) int {
	if idx := bytes.IndexByte(data[from:], c); idx >= 0 {
		return from + idx
	}

	return -1
}
