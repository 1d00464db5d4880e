package rfc822

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// NodeKind is the structural kind of a parsed part.
type NodeKind int

const (
	// Leaf is a part with an opaque, undecoded body.
	Leaf NodeKind = iota

	// Multipart is a container holding an ordered sequence of child parts.
	Multipart

	// EmbeddedMessage is a message/rfc822 part whose body is itself a full
	// message, carried as the single child.
	EmbeddedMessage
)

func (k NodeKind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Multipart:
		return "multipart"
	case EmbeddedMessage:
		return "embedded-message"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Span is an absolute byte range [Start, End) in the source stream.
type Span struct {
	Start int64
	End   int64
}

func (s Span) Len() int64 {
	return s.End - s.Start
}

// Node is a parsed message or message part. Trees are built bottom-up as
// boundaries resolve and are immutable once returned: a Multipart exclusively
// owns its children and there are no back references.
type Node struct {
	Kind NodeKind

	Header *Header

	// Span is the absolute byte range of the whole part, header included.
	Span Span

	// Body holds the raw, undecoded body bytes of a leaf.
	Body []byte

	// BodySpan is the absolute byte range of the body bytes.
	BodySpan Span

	// Boundary is the verbatim boundary parameter of a multipart container.
	Boundary []byte

	// Preamble and Epilogue hold the bytes before the first delimiter line and
	// after the close delimiter line of a multipart container.
	Preamble []byte
	Epilogue []byte

	// Children are the ordered child parts of a container, in the order their
	// separator lines appeared.
	Children []*Node

	// Diagnostics are the recoverable conditions recorded against this part.
	Diagnostics []Diagnostic
}

// IsMultipart reports whether the node is a multipart container.
func (n *Node) IsMultipart() bool {
	return n.Kind == Multipart
}

// Part resolves a dotted part identifier, each element being a 1-based child
// index. With no arguments it returns the node itself; an out of range index
// returns nil.
func (n *Node) Part(identifier ...int) *Node {
	if len(identifier) == 0 {
		return n
	}

	if identifier[0] < 1 || identifier[0] > len(n.Children) {
		return nil
	}

	return n.Children[identifier[0]-1].Part(identifier[1:]...)
}

// AllDiagnostics returns the diagnostics of the node and all its descendants,
// depth-first in document order.
func (n *Node) AllDiagnostics() []Diagnostic {
	res := slices.Clone(n.Diagnostics)

	for _, child := range n.Children {
		res = append(res, child.AllDiagnostics()...)
	}

	return res
}
