package rfc822

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ProtonMail/go-mailstream/bytebuf"
)

// Parser assembles a message tree from a byte stream. All components advance
// over a single shared buffer, strictly sequentially; nested parts resume the
// same buffer rather than re-reading any bytes.
type Parser struct {
	buf     *bytebuf.Buffer
	scanner *BoundaryScanner
	cfg     parseConfig
}

// Parse reads one message from r and returns its tree. Recoverable conditions
// are attached to the nodes they occurred in as diagnostics; only I/O errors,
// window exhaustion and strict-mode escalations fail the parse.
func Parse(r io.Reader, opts ...Option) (*Node, error) {
	return ParseAt(r, 0, opts...)
}

// ParseAt parses like Parse but treats the first byte of r as being at the
// given absolute stream offset, so that all spans and diagnostics carry
// positions in the original stream.
func ParseAt(r io.Reader, base int64, opts ...Option) (*Node, error) {
	cfg := newParseConfig(opts...)

	buf := bytebuf.NewAt(r, base)
	buf.SetMaxWindow(cfg.maxWindow)

	parser := &Parser{buf: buf, scanner: NewBoundaryScanner(buf), cfg: cfg}

	node, _, err := parser.parseNode(0)
	if err != nil {
		return nil, err
	}

	return node, nil
}

// ParseBytes parses a message held fully in memory.
func ParseBytes(literal []byte, opts ...Option) (*Node, error) {
	return Parse(bytes.NewReader(literal), opts...)
}

// ParseHeader parses a standalone header block literal, without a body.
func ParseHeader(literal []byte, opts ...Option) (*Header, []Diagnostic, error) {
	tokenizer := newHeaderTokenizer(bytebuf.New(bytes.NewReader(literal)), newParseConfig(opts...))

	tokens, err := tokenizer.readAll()
	if err != nil {
		return nil, nil, err
	}

	return newHeader(tokens), tokenizer.diags, nil
}

// parseNode parses one part: a header block followed by a body whose extent is
// delimited by the open boundaries. The returned match is the delimiter line
// that terminated the part, nil at end of input; it has already been consumed
// and belongs to an enclosing container.
func (p *Parser) parseNode(depth int) (*Node, *BoundaryMatch, error) {
	start := p.buf.AbsolutePosition()

	tokenizer := newHeaderTokenizer(p.buf, p.cfg)

	tokens, err := tokenizer.readAll()
	if err != nil {
		return nil, nil, err
	}

	node := &Node{
		Kind:        Leaf,
		Header:      newHeader(tokens),
		Diagnostics: tokenizer.diags,
	}
	node.Span.Start = start

	mediaType, params, err := ParseContentType(node.Header.Get("Content-Type"))
	if err != nil {
		if p.cfg.strictHeaders {
			return nil, nil, &ParseError{
				Offset:   start,
				Expected: "valid Content-Type value",
				Found:    fmt.Sprintf("%q", node.Header.Get("Content-Type")),
			}
		}

		node.Diagnostics = append(node.Diagnostics, Diagnostic{
			Kind:    DiagMalformedHeader,
			Offset:  start,
			Message: "invalid Content-Type value: " + err.Error(),
		})

		return p.parseLeafBody(node)
	}

	canRecurse := p.cfg.maxDepth < 0 || depth < p.cfg.maxDepth

	switch {
	case isMultipart(mediaType) && canRecurse:
		boundary := params["boundary"]
		if boundary == "" {
			// Deliberate leniency: many real-world messages omit the boundary
			// parameter; the container degrades to an opaque leaf.
			node.Diagnostics = append(node.Diagnostics, Diagnostic{
				Kind:    DiagMissingBoundaryParameter,
				Offset:  start,
				Message: fmt.Sprintf("%v container without boundary parameter", mediaType),
			})

			return p.parseLeafBody(node)
		}

		node.Kind = Multipart
		node.Boundary = []byte(boundary)

		return p.parseMultipartBody(node, depth)

	case isEmbeddedMessage(mediaType) && canRecurse:
		node.Kind = EmbeddedMessage

		child, match, err := p.parseNode(depth + 1)
		if err != nil {
			return nil, nil, err
		}

		node.Children = []*Node{child}
		node.BodySpan = child.Span
		node.Span.End = child.Span.End

		return node, match, nil

	default:
		return p.parseLeafBody(node)
	}
}

// parseLeafBody accumulates raw body bytes up to the next delimiter of any
// open container, or end of input.
func (p *Parser) parseLeafBody(node *Node) (*Node, *BoundaryMatch, error) {
	node.BodySpan.Start = p.buf.AbsolutePosition()

	var body []byte

	for {
		line, match, err := p.scanner.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				node.Body = body
				node.BodySpan.End = p.buf.AbsolutePosition()
				node.Span.End = node.BodySpan.End

				return node, nil, nil
			}

			return nil, nil, err
		}

		if match != nil {
			node.Body = body
			node.BodySpan.End = match.Offset
			node.Span.End = match.Offset

			return node, match, nil
		}

		body = append(body, line...)
	}
}

// parseMultipartBody captures the preamble, parses children delimited by the
// container's boundary, then captures the epilogue. An enclosing container's
// delimiter or end of input before the close line implicitly closes the
// container with a diagnostic; that rule is a plain stack pop, never
// unwinding.
func (p *Parser) parseMultipartBody(node *Node, depth int) (*Node, *BoundaryMatch, error) {
	p.scanner.Push(node.Boundary)

	myDepth := p.scanner.Depth() - 1

	node.BodySpan.Start = p.buf.AbsolutePosition()

	closed := false

	// Preamble: bytes up to the first delimiter line.
	var preamble []byte

	for {
		line, match, err := p.scanner.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				node.Preamble = preamble

				return p.closeWithout(node, nil), nil, nil
			}

			return nil, nil, err
		}

		if match == nil {
			preamble = append(preamble, line...)
			continue
		}

		if match.Depth < myDepth {
			node.Preamble = preamble

			return p.closeWithout(node, match), match, nil
		}

		node.Preamble = preamble

		if match.Kind == BoundaryClose {
			closed = true
		}

		break
	}

	// Children: one part per separator line, in order.
	for !closed {
		child, match, err := p.parseNode(depth + 1)
		if err != nil {
			return nil, nil, err
		}

		node.Children = append(node.Children, child)

		if match == nil {
			return p.closeWithout(node, nil), nil, nil
		}

		if match.Depth < myDepth {
			return p.closeWithout(node, match), match, nil
		}

		if match.Kind == BoundaryClose {
			closed = true
		}
	}

	// Epilogue: bytes after the close line, up to an enclosing delimiter.
	p.scanner.Pop()

	var epilogue []byte

	for {
		line, match, err := p.scanner.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				node.Epilogue = epilogue
				node.BodySpan.End = p.buf.AbsolutePosition()
				node.Span.End = node.BodySpan.End

				return node, nil, nil
			}

			return nil, nil, err
		}

		if match != nil {
			node.Epilogue = epilogue
			node.BodySpan.End = match.Offset
			node.Span.End = match.Offset

			return node, match, nil
		}

		epilogue = append(epilogue, line...)
	}
}

// closeWithout closes a container that never saw its own close line, at end of
// input or at the given enclosing delimiter.
func (p *Parser) closeWithout(node *Node, match *BoundaryMatch) *Node {
	end := p.buf.AbsolutePosition()
	if match != nil {
		end = match.Offset
	}

	node.Diagnostics = append(node.Diagnostics, Diagnostic{
		Kind:    DiagUnterminatedMultipart,
		Offset:  end,
		Message: fmt.Sprintf("multipart container with boundary %q closed without its final delimiter", node.Boundary),
	})

	node.BodySpan.End = end
	node.Span.End = end

	p.scanner.Pop()

	return node
}
