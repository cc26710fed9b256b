package godbc

import (
	"fmt"

	"github.com/canframe/godbc/storage"
)

// Kind identifies which of the flat set of error conditions an Error
// represents. Carried context differs per kind; see the Error fields.
type Kind string

const (
	// KindUnexpectedEOF means the scanner ran out of input mid-token.
	KindUnexpectedEOF Kind = "unexpected_eof"
	// KindExpected means the scanner/parser expected specific syntax and
	// did not find it. Reason holds a short static description.
	KindExpected Kind = "expected"
	// KindInvalidChar means an identifier or literal contained a byte that
	// is not legal at that position.
	KindInvalidChar Kind = "invalid_char"
	// KindMaxStrLength means an identifier or string exceeded MaxNameSize
	// or another configured string limit.
	KindMaxStrLength Kind = "max_str_length"
	// KindDuplicateID means two messages declared the same numeric ID.
	KindDuplicateID Kind = "duplicate_id"
	// KindDuplicateName means two entities in the same scope share a name
	// (message names within a Dbc, signal names within a Message, node
	// names within Nodes, ...).
	KindDuplicateName Kind = "duplicate_name"
	// KindCapacityExceeded means a storage.Sequence/BoundedString rejected
	// an insert past its configured limit.
	KindCapacityExceeded Kind = "capacity_exceeded"
	// KindValidation means a cross-entity invariant failed.
	// Reason holds a short static rule name, never a line number.
	KindValidation Kind = "validation"
	// KindUnknownID means the codec was asked to decode/encode a message
	// ID the Dbc does not contain.
	KindUnknownID Kind = "unknown_id"
	// KindUnknownSignal means the codec was asked to encode a signal name
	// the target message does not declare.
	KindUnknownSignal Kind = "unknown_signal"
	// KindShortPayload means the payload passed to decode is shorter than
	// the message's declared DLC.
	KindShortPayload Kind = "short_payload"
	// KindUnsupportedValueType means a float signal's bit length does not
	// match its value type (32 for Float32, 64 for Float64).
	KindUnsupportedValueType Kind = "unsupported_value_type"
	// KindEncodeRange means a physical value's raw encoding does not fit
	// the signal's bit length/signedness. The codec has no clamping mode:
	// such a value is always rejected.
	KindEncodeRange Kind = "encode_range"
	// KindMultiplexMismatch means an encode call tried to write a signal
	// that is inactive under the requested multiplexer context.
	KindMultiplexMismatch Kind = "multiplex_mismatch"
)

// Error is the single error type raised anywhere in the core: scanner,
// parsers, validator, and codec all return *Error so callers can switch on
// Kind instead of parsing message text.
type Error struct {
	Kind Kind
	// Line is 1-based and set only for scanner/parser errors; zero
	// otherwise (validator and codec errors carry no line).
	Line int
	// Reason is a short static description of what failed, used by
	// KindExpected and KindValidation.
	Reason string
	// Context carries kind-specific extra data (limit, expected/got byte
	// counts, container name, ...) for programmatic inspection.
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Kind, e.message(), e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.message())
}

func (e *Error) message() string {
	if e.Reason != "" {
		return e.Reason
	}
	switch e.Kind {
	case KindUnexpectedEOF:
		return "unexpected end of input"
	case KindDuplicateID:
		return fmt.Sprintf("duplicate message id %v", e.Context["id"])
	case KindDuplicateName:
		return fmt.Sprintf("duplicate name %v", e.Context["name"])
	case KindCapacityExceeded:
		return fmt.Sprintf("capacity exceeded for %v (limit %v)", e.Context["container"], e.Context["limit"])
	case KindUnknownID:
		return fmt.Sprintf("unknown message id %v", e.Context["id"])
	case KindUnknownSignal:
		return fmt.Sprintf("unknown signal %v", e.Context["name"])
	case KindShortPayload:
		return fmt.Sprintf("payload too short, expected %v got %v", e.Context["expected"], e.Context["got"])
	case KindUnsupportedValueType:
		return fmt.Sprintf("unsupported value type for signal %v", e.Context["name"])
	case KindEncodeRange:
		return fmt.Sprintf("value out of encodable range for signal %v", e.Context["name"])
	case KindMultiplexMismatch:
		return fmt.Sprintf("signal %v is not active under current multiplexer context", e.Context["name"])
	case KindInvalidChar:
		return fmt.Sprintf("invalid character %q", e.Context["char"])
	case KindMaxStrLength:
		return fmt.Sprintf("exceeds maximum length %v", e.Context["limit"])
	default:
		return string(e.Kind)
	}
}

// Is lets errors.Is(err, ErrKind(KindX)) style comparisons work by kind
// alone, ignoring context. It also makes two *Error values of the same kind
// compare equal under errors.Is.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// ErrKind builds a bare *Error carrying only a Kind, suitable as the target
// of errors.Is(err, ErrKind(KindUnknownID)).
func ErrKind(k Kind) *Error { return &Error{Kind: k} }

// capacityErr converts a storage.ErrCapacityExceeded into the flat *Error
// shape every other failure in this package returns, preserving the
// container/limit context for callers switching on Kind.
func capacityErr(err error, line int) error {
	ce, ok := err.(*storage.ErrCapacityExceeded)
	if !ok {
		return err
	}
	return newErr(KindCapacityExceeded, line, "", "container", ce.Container, "limit", ce.Limit)
}

func newErr(kind Kind, line int, reason string, ctx ...any) *Error {
	e := &Error{Kind: kind, Line: line, Reason: reason}
	if len(ctx) > 0 {
		e.Context = make(map[string]any, len(ctx)/2)
		for i := 0; i+1 < len(ctx); i += 2 {
			key, _ := ctx[i].(string)
			e.Context[key] = ctx[i+1]
		}
	}
	return e
}
