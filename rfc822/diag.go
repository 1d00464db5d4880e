package rfc822

import "fmt"

// DiagnosticKind identifies a recoverable condition encountered while parsing.
type DiagnosticKind int

const (
	// DiagMalformedHeader marks a header line that is not a valid field and not
	// a folding continuation.
	DiagMalformedHeader DiagnosticKind = iota

	// DiagMissingBoundaryParameter marks a multipart content type without a
	// boundary parameter; the container is degraded to a leaf.
	DiagMissingBoundaryParameter

	// DiagUnterminatedMultipart marks a multipart container that ended without
	// its own close delimiter, either at end of input or at an enclosing
	// container's delimiter.
	DiagUnterminatedMultipart

	// DiagLengthHintMismatch marks a declared message length that did not line
	// up with a valid message end, triggering a literal sentinel scan.
	DiagLengthHintMismatch
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagMalformedHeader:
		return "malformed-header"
	case DiagMissingBoundaryParameter:
		return "missing-boundary-parameter"
	case DiagUnterminatedMultipart:
		return "unterminated-multipart"
	case DiagLengthHintMismatch:
		return "length-hint-mismatch"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", int(k))
	}
}

// Diagnostic is a recoverable condition recorded against the node or message
// it occurred in. Parsing continues after recording one.
type Diagnostic struct {
	Kind    DiagnosticKind
	Offset  int64
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%v offset=%v]: %v", d.Kind, d.Offset, d.Message)
}
