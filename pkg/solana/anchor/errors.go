package anchor

import (
	"github.com/pkg/errors"
)

var (
	// ErrUnresolvedType indicates a reference to a type the schema does not
	// define, or a generic that was never bound.
	ErrUnresolvedType = errors.New("unresolved type")

	// ErrDecode is the root of every decode failure. Specific causes below are
	// reachable with errors.Is as well.
	ErrDecode = errors.New("decode error")

	// ErrEncode is the root of every encode failure.
	ErrEncode = errors.New("encode error")

	ErrTooShortForDiscriminator = errors.New("data too short for discriminator")
	ErrDiscriminatorMismatch    = errors.New("discriminator mismatch")
	ErrTooShortForFixedLayout   = errors.New("data too short for fixed layout")
	ErrNotFixedLayout           = errors.New("type has no fixed layout")
	ErrUnsupportedSerialization = errors.New("unsupported serialization")
	ErrTrailingBytes            = errors.New("trailing bytes after value")

	// ErrUnknownDiscriminator is returned by the dispatchers when no known
	// account or event matches.
	ErrUnknownDiscriminator = errors.New("unknown discriminator")

	ErrMissingArgument = errors.New("missing instruction argument")
	ErrMissingAccount  = errors.New("missing instruction account")
	ErrUnknownAccount  = errors.New("unknown instruction account")
)

// classifiedError marks cause as belonging to class (ErrDecode or ErrEncode)
// while keeping the cause chain intact.
type classifiedError struct {
	class error
	cause error
}

func (e *classifiedError) Error() string {
	return e.class.Error() + ": " + e.cause.Error()
}

func (e *classifiedError) Is(target error) bool {
	return target == e.class
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func (e *classifiedError) Cause() error {
	return e.cause
}

func decodeError(cause error) error {
	if cause == nil || errors.Is(cause, ErrDecode) {
		return cause
	}
	return &classifiedError{class: ErrDecode, cause: cause}
}

func encodeError(cause error) error {
	if cause == nil || errors.Is(cause, ErrEncode) {
		return cause
	}
	return &classifiedError{class: ErrEncode, cause: cause}
}
