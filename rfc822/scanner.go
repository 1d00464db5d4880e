package rfc822

import (
	"bytes"
	"errors"

	"github.com/ProtonMail/go-mailstream/bytebuf"
	"golang.org/x/exp/slices"
)

// BoundaryKind identifies what a matched delimiter line is.
type BoundaryKind int

const (
	// BoundaryPart is a part separator line of the form --boundary.
	BoundaryPart BoundaryKind = iota

	// BoundaryClose is a final separator line of the form --boundary--.
	BoundaryClose

	// MboxSentinel is a line starting with "From " at the start of a physical
	// line, marking the start of a new message in a mailbox stream.
	MboxSentinel
)

// BoundaryMatch describes a delimiter line found by the scanner.
type BoundaryMatch struct {
	// Offset is the absolute stream offset of the start of the matched line.
	Offset int64

	Kind BoundaryKind

	// Boundary is the boundary text the line matched against; nil for mbox
	// sentinels.
	Boundary []byte

	// Depth is the index of the matched boundary in the stack of open
	// containers, 0 being the outermost. -1 for mbox sentinels.
	Depth int

	// Line is the full matched line, terminator included.
	Line []byte
}

type openBoundary struct {
	text []byte
	sep  []byte // --text
	end  []byte // --text--
}

var sentinelPrefix = []byte("From ")

// BoundaryScanner reads physical lines from a buffer and recognizes multipart
// delimiter lines for the set of currently open containers, as well as mbox
// sentinel lines. A line is only ever classified once it is fully resident:
// a candidate truncated by the window edge is completed via refill first, so a
// delimiter straddling a refill can never be missed.
type BoundaryScanner struct {
	buf        *bytebuf.Buffer
	boundaries []openBoundary
	sentinels  bool
}

func NewBoundaryScanner(buf *bytebuf.Buffer) *BoundaryScanner {
	return &BoundaryScanner{buf: buf}
}

// EnableSentinels turns mbox "From " sentinel recognition on or off.
func (s *BoundaryScanner) EnableSentinels(enabled bool) {
	s.sentinels = enabled
}

// Push opens a multipart container with the given boundary. The boundary text
// is matched byte-exactly, so it must be the verbatim parameter value.
func (s *BoundaryScanner) Push(boundary []byte) {
	text := slices.Clone(boundary)

	sep := append([]byte("--"), text...)
	end := append(append([]byte(nil), sep...), '-', '-')

	s.boundaries = append(s.boundaries, openBoundary{text: text, sep: sep, end: end})
}

// Pop closes the innermost open container.
func (s *BoundaryScanner) Pop() {
	s.boundaries = s.boundaries[:len(s.boundaries)-1]
}

// Depth returns the number of open containers.
func (s *BoundaryScanner) Depth() int {
	return len(s.boundaries)
}

// Next consumes the next physical line. The returned line is a copy including
// its terminator. The match is non-nil when the line is a delimiter of any
// open boundary or an mbox sentinel. io.EOF is returned once the stream is
// exhausted.
func (s *BoundaryScanner) Next() ([]byte, *BoundaryMatch, error) {
	offset := s.buf.AbsolutePosition()

	view, err := s.buf.PeekLine()
	if err != nil {
		if errors.Is(err, bytebuf.ErrWindowExceeded) {
			return nil, nil, ErrBoundaryStraddle
		}

		return nil, nil, err
	}

	line := append([]byte(nil), view...)

	s.buf.Consume(len(line))

	return line, s.classify(offset, line), nil
}

// classify matches a complete line against the open boundaries, innermost
// first, then against the mbox sentinel form. Matching is byte-exact apart
// from the single trailing CR/LF.
func (s *BoundaryScanner) classify(offset int64, line []byte) *BoundaryMatch {
	body := trimLineEnding(line)

	for i := len(s.boundaries) - 1; i >= 0; i-- {
		bound := s.boundaries[i]

		if bytes.Equal(body, bound.sep) {
			return &BoundaryMatch{Offset: offset, Kind: BoundaryPart, Boundary: bound.text, Depth: i, Line: line}
		}

		if bytes.Equal(body, bound.end) {
			return &BoundaryMatch{Offset: offset, Kind: BoundaryClose, Boundary: bound.text, Depth: i, Line: line}
		}
	}

	if s.sentinels && bytes.HasPrefix(line, sentinelPrefix) {
		return &BoundaryMatch{Offset: offset, Kind: MboxSentinel, Depth: -1, Line: line}
	}

	return nil
}
